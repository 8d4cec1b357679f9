// Package accounts recomputes every account balance from the full transaction history.
package accounts

import (
	"context"
	"sync/atomic"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vadiminshakov/finbook/internal/domain"
	"github.com/vadiminshakov/finbook/internal/ledger"
	"github.com/vadiminshakov/finbook/internal/services"
)

const defaultConcurrency = 5

type recordSource interface {
	Prices(ctx context.Context) (domain.Prices, error)
	Accounts(ctx context.Context) ([]domain.Account, error)
	Transfers(ctx context.Context) ([]domain.Transfer, error)
	Trades(ctx context.Context) ([]domain.Trade, error)
}

type accountWriter interface {
	UpdateAccount(ctx context.Context, v domain.AccountValuation) error
}

// Updater reconciles transfers and trades and overwrites every account's totals.
type Updater struct {
	source      recordSource
	writer      accountWriter
	concurrency int
}

// NewUpdater creates an Updater writing at most concurrency accounts at once.
func NewUpdater(source recordSource, writer accountWriter, concurrency int) *Updater {
	if concurrency < 1 {
		concurrency = defaultConcurrency
	}
	return &Updater{source: source, writer: writer, concurrency: concurrency}
}

func (u *Updater) Kind() domain.RunKind { return domain.RunAccounts }

// Run fetches all records, reconciles them and writes the results back.
// Any fetch error aborts the run before anything is written. The first write
// error cancels the writes that have not started yet.
func (u *Updater) Run(ctx context.Context, logger *zap.Logger) (services.Result, error) {
	prices, err := u.source.Prices(ctx)
	if err != nil {
		return services.Result{}, errors.Wrap(err, "fetch currency prices")
	}
	accounts, err := u.source.Accounts(ctx)
	if err != nil {
		return services.Result{}, errors.Wrap(err, "fetch accounts")
	}
	transfers, err := u.source.Transfers(ctx)
	if err != nil {
		return services.Result{}, errors.Wrap(err, "fetch wallet transactions")
	}
	logger.Info("Wallet transactions fetched", zap.Int("count", len(transfers)))

	trades, err := u.source.Trades(ctx)
	if err != nil {
		return services.Result{}, errors.Wrap(err, "fetch trades")
	}
	logger.Info("Trade transactions fetched", zap.Int("count", len(trades)))

	deltas := ledger.Reconcile(transfers, trades)
	valuations := ledger.Valuate(accounts, deltas, prices)

	logger.Info("Balances reconciled",
		zap.Int("accounts", len(accounts)),
		zap.Int("touched", len(deltas)),
		zap.Int("writes", len(valuations)))

	updated, err := u.writeBack(ctx, logger, valuations)
	res := services.Result{Updated: updated, Failed: len(valuations) - updated}
	if err != nil {
		return res, errors.Wrap(err, "write back account balances")
	}
	return res, nil
}

func (u *Updater) writeBack(ctx context.Context, logger *zap.Logger, valuations []domain.AccountValuation) (int, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.concurrency)

	var updated atomic.Int64
	for _, v := range valuations {
		v := v
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			if err := u.writer.UpdateAccount(gctx, v); err != nil {
				return err
			}
			updated.Add(1)
			logger.Debug("Account updated",
				zap.String("account", v.AccountID),
				zap.String("amount", v.Amount.String()),
				zap.String("usd", v.USDValue.String()),
				zap.String("cny", v.CNYValue.String()))
			return nil
		})
	}

	err := g.Wait()
	return int(updated.Load()), err
}
