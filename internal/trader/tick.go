package trader

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"autoswap/internal/decision"
	"autoswap/internal/dex"
	"autoswap/internal/model"
	"autoswap/internal/pricefeed"
	"autoswap/internal/wallet"
)

const warmSamples = 48

// Warm seeds the price history before the first tick: from the archive
// when one is configured, otherwise from the synthetic source walking
// around the given price.
func (s *Session) Warm(ctx context.Context, price float64) {
	if s.archive != nil {
		pair := s.cfg.BaseToken.Symbol + "/" + s.cfg.QuoteToken.Symbol
		samples, err := s.archive.RecentSamples(ctx, s.net.ChainID, pair, warmSamples)
		if err != nil {
			s.logger.Warn("archive read failed", zap.Error(err))
		} else if len(samples) > 0 {
			for _, sample := range samples {
				s.history.Append(sample)
			}
			s.log.appendf("price history warmed with %d archived samples", len(samples))
			return
		}
	}

	if s.source == nil || price <= 0 {
		return
	}
	now := time.Now()
	last := price
	for i := warmSamples; i > 0; i-- {
		last = s.source.Next(last)
		s.history.Append(pricefeed.Sample{Time: now.Add(-time.Duration(i) * time.Minute), Price: last})
	}
	s.log.appendf("price history warmed with %d synthetic samples", warmSamples)
}

// tick runs one scheduler iteration. The busy flag keeps a slow iteration
// from overlapping the next timer fire.
func (s *Session) tick(ctx context.Context) {
	if !s.busy.CompareAndSwap(false, true) {
		s.log.appendf("tick skipped: previous iteration still running")
		return
	}
	defer s.busy.Store(false)

	s.mu.Lock()
	lastTrade := s.lastTrade
	signer := s.signer
	s.mu.Unlock()

	if !lastTrade.IsZero() {
		if since := time.Since(lastTrade); since < s.cfg.MinTradeInterval {
			s.log.appendf("tick skipped: %s since last trade, minimum is %s",
				since.Round(time.Second), s.cfg.MinTradeInterval)
			return
		}
	}

	if _, err := s.backend.ChainID(ctx); err != nil {
		s.log.appendf("tick aborted: chain unreachable: %v", err)
		return
	}

	gasBalance, tokenBalance := s.readBalances(ctx, signer)

	pool, err := s.resolver.Resolve(ctx, s.cfg.BaseToken, s.cfg.QuoteToken, s.cfg.FeeHint)
	if err != nil {
		s.logger.Warn("pool resolution failed", zap.Error(err))
		s.log.appendf("tick ended: %v", err)
		return
	}

	price, err := s.pairPrice(pool)
	if err != nil {
		s.log.appendf("tick ended: %v", err)
		return
	}

	sample := pricefeed.Sample{Time: time.Now(), Price: price}
	s.history.Append(sample)
	s.archiveSample(ctx, sample)

	prices := s.history.Prices()
	change24, _ := decision.ChangePct(prices, decision.ChangeLookback)

	s.mu.Lock()
	recent := make([]model.TradeRecord, len(s.trades))
	copy(recent, s.trades)
	s.mu.Unlock()

	dctx := decision.Context{
		Price:        price,
		Change24Pct:  change24,
		RSI:          decision.RSI(prices, decision.RSIWindow),
		GasBalance:   gasBalance,
		TokenBalance: tokenBalance,
		TradeAmount:  s.cfg.TradeAmount,
		RecentTrades: recent,
		Samples:      prices,
	}

	d := s.engine.Decide(ctx, dctx)
	s.log.appendf("decision: %s confidence %.2f (%v)", d.Action, d.Confidence, d.Reasoning)

	if d.Action == model.ActionHold || d.Confidence <= s.cfg.ConfidenceThreshold {
		s.log.appendf("holding: confidence %.2f vs threshold %.2f", d.Confidence, s.cfg.ConfidenceThreshold)
		return
	}

	s.executeDecision(ctx, pool, d, price)
}

// executeDecision re-checks balances for the trade direction and runs the
// executor. BUY spends the quote token, SELL spends the base token.
func (s *Session) executeDecision(ctx context.Context, pool model.Pool, d model.TradingDecision, price float64) {
	var tokenIn model.Token
	if d.Action == model.ActionBuy {
		tokenIn = s.cfg.QuoteToken
	} else {
		tokenIn = s.cfg.BaseToken
	}

	s.mu.Lock()
	signer := s.signer
	s.mu.Unlock()
	if signer == nil {
		s.log.appendf("trade skipped: no signer")
		return
	}

	need := d.Amount.Shift(int32(tokenIn.Decimals)).BigInt()
	have, err := dex.BalanceOf(ctx, s.backend, tokenIn.Address, signer.Address())
	if err != nil {
		s.log.appendf("trade skipped: balance read failed: %v", err)
		return
	}
	if have.Cmp(need) < 0 {
		s.log.appendf("trade skipped: insufficient %s balance (need %s, have %s)",
			tokenIn.Symbol, need, have)
		return
	}

	quote, err := dex.BuildQuote(pool, tokenIn, d.Amount, d.SlippagePct)
	if err != nil {
		s.log.appendf("trade skipped: %v", err)
		return
	}

	s.log.appendf("%s %s %s (min out %s, slippage %.2f%%)",
		d.Action, d.Amount, tokenIn.Symbol, quote.MinAmountOut, quote.SlippagePct)

	result := s.exec.Execute(ctx, quote)
	if !result.Success {
		s.log.appendf("trade failed: %s", result.Error)
		return
	}

	record := model.TradeRecord{
		Time:   time.Now(),
		Action: d.Action,
		Amount: d.Amount,
		Price:  price,
		TxHash: result.TxHash,
	}

	s.mu.Lock()
	s.lastTrade = record.Time
	if len(s.trades) >= s.cfg.MaxTradeRecords {
		s.trades = s.trades[1:]
	}
	s.trades = append(s.trades, record)
	s.mu.Unlock()

	s.log.appendf("trade confirmed: %s, output %s %s", result.TxHash, result.OutputAmount, quote.TokenOut.Symbol)
}

// readBalances reads native and base-token balances, warning when low but
// never aborting the tick.
func (s *Session) readBalances(ctx context.Context, signer *wallet.Signer) (string, string) {
	if signer == nil {
		return "", ""
	}

	gasBalance := ""
	if wei, err := s.backend.BalanceAt(ctx, signer.Address()); err != nil {
		s.log.appendf("gas balance read failed: %v", err)
	} else {
		gasBalance = decimal.NewFromBigInt(wei, -18).String()
		if s.cfg.GasWarnWei != nil && wei.Cmp(s.cfg.GasWarnWei) < 0 {
			s.log.appendf("warning: gas balance %s is below the safe threshold", gasBalance)
		}
	}

	tokenBalance := ""
	if units, err := dex.BalanceOf(ctx, s.backend, s.cfg.BaseToken.Address, signer.Address()); err != nil {
		s.log.appendf("%s balance read failed: %v", s.cfg.BaseToken.Symbol, err)
	} else {
		human := decimal.NewFromBigInt(units, -int32(s.cfg.BaseToken.Decimals))
		tokenBalance = human.String()
		if s.cfg.TokenWarnUnit.Sign() > 0 && human.LessThan(s.cfg.TokenWarnUnit) {
			s.log.appendf("warning: %s balance %s is below the safe threshold", s.cfg.BaseToken.Symbol, tokenBalance)
		}
	}

	return gasBalance, tokenBalance
}

func (s *Session) pairPrice(pool model.Pool) (float64, error) {
	price, err := dex.PoolPrice(pool)
	if err != nil {
		return 0, err
	}
	if s.cfg.BaseToken.Equal(pool.Token1) {
		price = 1 / price
	}
	return price, nil
}

func (s *Session) archiveSample(ctx context.Context, sample pricefeed.Sample) {
	if s.archive == nil {
		return
	}
	pair := s.cfg.BaseToken.Symbol + "/" + s.cfg.QuoteToken.Symbol
	if err := s.archive.InsertSamples(ctx, s.net.ChainID, pair, []pricefeed.Sample{sample}); err != nil {
		s.logger.Warn("archive write failed", zap.Error(err))
	}
}
