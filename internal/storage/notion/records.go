package notion

import (
	"context"

	"github.com/jomei/notionapi"

	"github.com/vadiminshakov/finbook/internal/domain"
)

// Transfers fetches every wallet record.
func (s *Store) Transfers(ctx context.Context) ([]domain.Transfer, error) {
	pages, err := s.queryAll(ctx, s.dbs.Wallet)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Transfer, 0, len(pages))
	for _, page := range pages {
		out = append(out, transferFromPage(page))
	}
	return out, nil
}

// Trades fetches every trade record.
func (s *Store) Trades(ctx context.Context) ([]domain.Trade, error) {
	pages, err := s.queryAll(ctx, s.dbs.Trade)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Trade, 0, len(pages))
	for _, page := range pages {
		out = append(out, tradeFromPage(page))
	}
	return out, nil
}

// Accounts fetches every account with its stored totals.
func (s *Store) Accounts(ctx context.Context) ([]domain.Account, error) {
	pages, err := s.queryAll(ctx, s.dbs.Account)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Account, 0, len(pages))
	for _, page := range pages {
		props := page.Properties
		out = append(out, domain.Account{
			ID:         page.ID.String(),
			Name:       title(props, propName),
			CurrencyID: relation(props, propCurrency),
			Amount:     numberOrZero(props, propAmount),
			USDValue:   numberOrZero(props, propUSD),
			CNYValue:   numberOrZero(props, propCNY),
		})
	}
	return out, nil
}

// Currencies fetches every tracked currency with its current price.
func (s *Store) Currencies(ctx context.Context) ([]domain.Currency, error) {
	pages, err := s.queryAll(ctx, s.dbs.Currency)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Currency, 0, len(pages))
	for _, page := range pages {
		props := page.Properties
		out = append(out, domain.Currency{
			ID:     page.ID.String(),
			Name:   title(props, propName),
			CoinID: richText(props, propCoinID),
			Price: domain.CurrencyPrice{
				USD: numberOrZero(props, propPriceUSD),
				CNY: numberOrZero(props, propPriceCNY),
			},
		})
	}
	return out, nil
}

// Prices returns the current price of every currency keyed by record id.
func (s *Store) Prices(ctx context.Context) (domain.Prices, error) {
	currencies, err := s.Currencies(ctx)
	if err != nil {
		return nil, err
	}

	prices := make(domain.Prices, len(currencies))
	for _, c := range currencies {
		prices[c.ID] = c.Price
	}
	return prices, nil
}

func transferFromPage(page notionapi.Page) domain.Transfer {
	props := page.Properties
	return domain.Transfer{
		ID:            page.ID.String(),
		Action:        domain.ParseTransferAction(selectName(props, propAction)),
		FromAccountID: relation(props, propFrom),
		ToAccountID:   relation(props, propTo),
		Amount:        numberOrZero(props, propAmount),
		ToAmount:      optionalNumber(props, propToAmount),
		FeeAccountID:  relation(props, propFeeAccount),
		FeeAmount:     optionalNumber(props, propFee),
	}
}

func tradeFromPage(page notionapi.Page) domain.Trade {
	props := page.Properties
	return domain.Trade{
		ID:             page.ID.String(),
		Type:           domain.ParseTradeType(selectName(props, propTradeType)),
		Side:           domain.ParseTradeSide(selectName(props, propTradeSide)),
		BaseAccountID:  relation(props, propBase),
		AssetAccountID: relation(props, propAsset),
		Amount:         numberOrZero(props, propAmount),
		Price:          numberOrZero(props, propPrice),
		Fee:            optionalNumber(props, propFee),
		FeeAccountID:   relation(props, propFeeAccount),
		Win:            optionalNumber(props, propWin),
	}
}
