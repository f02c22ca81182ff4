package wallet

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/scrypt"
)

// Keystore maps an owner address to its signing key. The trading core only
// reads and writes through this interface; how keys are stored is the
// implementation's concern.
type Keystore interface {
	Put(owner common.Address, hexKey string) error
	Get(owner common.Address) (string, error)
}

// MemoryKeystore keeps keys in process memory. Used in tests and when no
// key directory is configured.
type MemoryKeystore struct {
	mu   sync.RWMutex
	keys map[common.Address]string
}

func NewMemoryKeystore() *MemoryKeystore {
	return &MemoryKeystore{keys: make(map[common.Address]string)}
}

func (k *MemoryKeystore) Put(owner common.Address, hexKey string) error {
	k.mu.Lock()
	k.keys[owner] = hexKey
	k.mu.Unlock()
	return nil
}

func (k *MemoryKeystore) Get(owner common.Address) (string, error) {
	k.mu.RLock()
	hexKey, ok := k.keys[owner]
	k.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("no key stored for %s", owner.Hex())
	}
	return hexKey, nil
}

const (
	scryptN      = 1 << 15
	scryptR      = 8
	scryptP      = 1
	scryptKeyLen = 32
)

type encryptedKey struct {
	Salt       string `json:"salt"`
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ciphertext"`
}

// FileKeystore stores keys on disk encrypted with AES-256-GCM under a
// scrypt-derived key. One JSON file per owner address.
type FileKeystore struct {
	dir        string
	passphrase string
	mu         sync.Mutex
}

func NewFileKeystore(dir, passphrase string) (*FileKeystore, error) {
	if dir == "" {
		return nil, fmt.Errorf("keystore dir is required")
	}
	if passphrase == "" {
		return nil, fmt.Errorf("keystore passphrase is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create keystore dir: %w", err)
	}
	return &FileKeystore{dir: dir, passphrase: passphrase}, nil
}

func (k *FileKeystore) path(owner common.Address) string {
	return filepath.Join(k.dir, strings.ToLower(owner.Hex())+".json")
}

func (k *FileKeystore) Put(owner common.Address, hexKey string) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("generate salt: %w", err)
	}

	aead, err := k.aead(salt)
	if err != nil {
		return err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("generate nonce: %w", err)
	}

	ciphertext := aead.Seal(nil, nonce, []byte(hexKey), owner.Bytes())

	record := encryptedKey{
		Salt:       hex.EncodeToString(salt),
		Nonce:      hex.EncodeToString(nonce),
		Ciphertext: hex.EncodeToString(ciphertext),
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal key record: %w", err)
	}

	tmpPath := k.path(owner) + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("write key file: %w", err)
	}
	if err := os.Rename(tmpPath, k.path(owner)); err != nil {
		return fmt.Errorf("rename key file: %w", err)
	}
	return nil
}

func (k *FileKeystore) Get(owner common.Address) (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	data, err := os.ReadFile(k.path(owner))
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("no key stored for %s", owner.Hex())
		}
		return "", fmt.Errorf("read key file: %w", err)
	}

	var record encryptedKey
	if err := json.Unmarshal(data, &record); err != nil {
		return "", fmt.Errorf("parse key record: %w", err)
	}

	salt, err := hex.DecodeString(record.Salt)
	if err != nil {
		return "", fmt.Errorf("decode salt: %w", err)
	}
	nonce, err := hex.DecodeString(record.Nonce)
	if err != nil {
		return "", fmt.Errorf("decode nonce: %w", err)
	}
	ciphertext, err := hex.DecodeString(record.Ciphertext)
	if err != nil {
		return "", fmt.Errorf("decode ciphertext: %w", err)
	}

	aead, err := k.aead(salt)
	if err != nil {
		return "", err
	}

	plaintext, err := aead.Open(nil, nonce, ciphertext, owner.Bytes())
	if err != nil {
		return "", fmt.Errorf("decrypt key for %s: %w", owner.Hex(), err)
	}
	return string(plaintext), nil
}

func (k *FileKeystore) aead(salt []byte) (cipher.AEAD, error) {
	derived, err := scrypt.Key([]byte(k.passphrase), salt, scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	block, err := aes.NewCipher(derived)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("init gcm: %w", err)
	}
	return aead, nil
}
