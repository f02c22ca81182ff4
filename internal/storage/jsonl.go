package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"autoswap/internal/pricefeed"
)

type sampleLine struct {
	ChainID uint64    `json:"chain_id"`
	Pair    string    `json:"pair"`
	Time    time.Time `json:"time"`
	Price   float64   `json:"price"`
}

// JsonlArchive stores price samples in a local JSONL file. Used when no
// Postgres DSN is configured but samples should survive restarts.
type JsonlArchive struct {
	path string
	mu   sync.Mutex
}

func NewJsonlArchive(path string) *JsonlArchive {
	return &JsonlArchive{path: path}
}

// InsertSamples appends samples as JSON lines.
func (a *JsonlArchive) InsertSamples(_ context.Context, chainID uint64, pair string, samples []pricefeed.Sample) error {
	if len(samples) == 0 {
		return nil
	}

	dir := filepath.Dir(a.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create archive dir: %w", err)
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	file, err := os.OpenFile(a.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open archive file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for _, sample := range samples {
		line, err := json.Marshal(sampleLine{
			ChainID: chainID,
			Pair:    pair,
			Time:    sample.Time.UTC(),
			Price:   sample.Price,
		})
		if err != nil {
			return fmt.Errorf("marshal sample: %w", err)
		}
		if _, err := writer.Write(line); err != nil {
			return fmt.Errorf("write sample: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("write newline: %w", err)
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush archive: %w", err)
	}

	return nil
}

// RecentSamples returns the trailing samples for the pair, oldest first.
func (a *JsonlArchive) RecentSamples(_ context.Context, chainID uint64, pair string, limit int) ([]pricefeed.Sample, error) {
	if limit <= 0 {
		limit = 100
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	file, err := os.Open(a.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open archive file: %w", err)
	}
	defer file.Close()

	var samples []pricefeed.Sample
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var line sampleLine
		if err := json.Unmarshal(scanner.Bytes(), &line); err != nil {
			continue
		}
		if line.ChainID != chainID || line.Pair != pair {
			continue
		}
		samples = append(samples, pricefeed.Sample{Time: line.Time, Price: line.Price})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan archive: %w", err)
	}

	if len(samples) > limit {
		samples = samples[len(samples)-limit:]
	}
	return samples, nil
}
