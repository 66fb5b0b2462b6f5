package coinMarketCapApi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/KotFed0t/crypto_vault_tracker/config"
	"github.com/KotFed0t/crypto_vault_tracker/internal/externalApi"
	"github.com/KotFed0t/crypto_vault_tracker/internal/model"
	"github.com/KotFed0t/crypto_vault_tracker/utils"
	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

const SourceName = "coinmarketcap"

type quotesResponse struct {
	Data map[string]struct {
		Symbol string `json:"symbol"`
		Quote  struct {
			USD struct {
				Price            decimal.Decimal `json:"price"`
				Volume24h        decimal.Decimal `json:"volume_24h"`
				PercentChange24h decimal.Decimal `json:"percent_change_24h"`
			} `json:"USD"`
		} `json:"quote"`
	} `json:"data"`
}

type CoinMarketCapApi struct {
	client *resty.Client
}

func New(cfg *config.Config) *CoinMarketCapApi {
	client := resty.New().
		SetDebug(cfg.API.Debug).
		SetTimeout(cfg.API.Timeout).
		SetBaseURL(cfg.API.CoinMarketCap.Url).
		SetHeader("X-CMC_PRO_API_KEY", cfg.API.CoinMarketCap.ApiKey)
	return &CoinMarketCapApi{client: client}
}

func (a *CoinMarketCapApi) Name() string {
	return SourceName
}

// FetchPrices reads BTC, ETH and USDC quotes in USD. USDC falls back to 1 when absent.
func (a *CoinMarketCapApi) FetchPrices(ctx context.Context) (model.PriceSet, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	url := "/v1/cryptocurrency/quotes/latest"
	params := map[string]string{
		"symbol":  "BTC,ETH,USDC",
		"convert": "USD",
	}

	slog.Debug("start request", slog.String("rqID", rqID), slog.String("op", "CoinMarketCapApi.FetchPrices"))

	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetQueryParams(params).
		Get(url)
	if err != nil {
		slog.Error("error while dialing CoinMarketCap", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return model.PriceSet{}, err
	}

	if resp.IsError() {
		slog.Error("CoinMarketCap responded with error", slog.String("rqID", rqID), slog.Int("status", resp.StatusCode()))
		return model.PriceSet{}, fmt.Errorf("%w: status %d", externalApi.ErrBadResponse, resp.StatusCode())
	}

	quotes := quotesResponse{}
	if err = json.Unmarshal(resp.Body(), &quotes); err != nil {
		slog.Error("can't unmarshal CoinMarketCap quotes", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return model.PriceSet{}, fmt.Errorf("%w: %w", externalApi.ErrBadResponse, err)
	}

	btc, okBtc := quotes.Data[string(model.AssetBTC)]
	eth, okEth := quotes.Data[string(model.AssetETH)]
	if !okBtc || !okEth || !btc.Quote.USD.Price.IsPositive() || !eth.Quote.USD.Price.IsPositive() {
		slog.Error("CoinMarketCap quotes incomplete", slog.String("rqID", rqID))
		return model.PriceSet{}, fmt.Errorf("%w: missing BTC or ETH quote", externalApi.ErrBadResponse)
	}

	usdcPrice := decimal.NewFromInt(1)
	if usdc, ok := quotes.Data["USDC"]; ok && usdc.Quote.USD.Price.IsPositive() {
		usdcPrice = usdc.Quote.USD.Price
	}

	slog.Debug("request complete", slog.String("rqID", rqID), slog.String("op", "CoinMarketCapApi.FetchPrices"))

	return model.PriceSet{
		BtcPrice:  btc.Quote.USD.Price,
		EthPrice:  eth.Quote.USD.Price,
		UsdcPrice: usdcPrice,
		BtcChange: btc.Quote.USD.PercentChange24h,
		EthChange: eth.Quote.USD.PercentChange24h,
		BtcVolume: btc.Quote.USD.Volume24h,
		EthVolume: eth.Quote.USD.Volume24h,
		Trend:     model.TrendOf(btc.Quote.USD.PercentChange24h),
		Source:    SourceName,
	}, nil
}
