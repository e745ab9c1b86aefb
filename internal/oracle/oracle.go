package oracle

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	routerABIJSON = `[{"constant":true,"inputs":[{"name":"amountIn","type":"uint256"},{"name":"path","type":"address[]"}],"name":"getAmountsOut","outputs":[{"name":"amounts","type":"uint256[]"}],"stateMutability":"view","type":"function"}]`
)

var (
	routerABI abi.ABI
)

func init() {
	parsed, err := abi.JSON(strings.NewReader(routerABIJSON))
	if err != nil {
		panic("failed to parse router ABI: " + err.Error())
	}
	routerABI = parsed
}

// PriceSource retrieves the on-chain spot price of the monitored token.
type PriceSource interface {
	SpotPrice(ctx context.Context) (decimal.Decimal, uint64, error)
}

// Options parameterise the on-chain oracle.
type Options struct {
	RPCURL        string
	RouterAddress string
	TokenIn       string
	TokenOut      string
	AmountIn      int64
	OutDecimals   int32
	Timeout       time.Duration
}

// Oracle quotes the monitored token through a UniswapV2-style router.
type Oracle struct {
	opts      Options
	logger    zerolog.Logger
	client    *ethclient.Client
	clientMux sync.Mutex
}

// New builds a new on-chain price oracle.
func New(opts Options, logger zerolog.Logger) *Oracle {
	if opts.AmountIn <= 0 {
		opts.AmountIn = 1
	}
	if opts.OutDecimals <= 0 {
		opts.OutDecimals = 18
	}
	return &Oracle{opts: opts, logger: logger.With().Str("component", "oracle").Logger()}
}

// CheckConnectivity dials the RPC endpoint and performs one cheap read. The
// process must not enter the monitoring loop when this fails.
func (o *Oracle) CheckConnectivity(ctx context.Context) error {
	timeout := o.opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	var cancel context.CancelFunc
	ctx, cancel = context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := o.getClient(ctx)
	if err != nil {
		return err
	}
	if _, err := client.ChainID(ctx); err != nil {
		return err
	}
	return nil
}

// SpotPrice asks the router how much of the output token a fixed amount of
// the monitored token buys, scaled by the output token's decimals. Any
// failure means "no observation this cycle" for the caller.
func (o *Oracle) SpotPrice(ctx context.Context) (decimal.Decimal, uint64, error) {
	if o.opts.RPCURL == "" {
		return decimal.Decimal{}, 0, errors.New("rpc url not configured")
	}
	if o.opts.RouterAddress == "" {
		return decimal.Decimal{}, 0, errors.New("router contract address not configured")
	}
	if o.opts.TokenIn == "" || o.opts.TokenOut == "" {
		return decimal.Decimal{}, 0, errors.New("conversion path token addresses not configured")
	}

	timeout := o.opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	var cancel context.CancelFunc
	ctx, cancel = context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := o.getClient(ctx)
	if err != nil {
		return decimal.Decimal{}, 0, err
	}

	router := common.HexToAddress(o.opts.RouterAddress)
	path := []common.Address{
		common.HexToAddress(o.opts.TokenIn),
		common.HexToAddress(o.opts.TokenOut),
	}

	payload, err := routerABI.Pack("getAmountsOut", big.NewInt(o.opts.AmountIn), path)
	if err != nil {
		return decimal.Decimal{}, 0, err
	}

	res, err := client.CallContract(ctx, ethereum.CallMsg{To: &router, Data: payload}, nil)
	if err != nil {
		return decimal.Decimal{}, 0, err
	}

	outputs, err := routerABI.Unpack("getAmountsOut", res)
	if err != nil {
		return decimal.Decimal{}, 0, err
	}

	if len(outputs) != 1 {
		return decimal.Decimal{}, 0, errors.New("unexpected getAmountsOut response")
	}

	amounts, ok := outputs[0].([]*big.Int)
	if !ok || len(amounts) == 0 {
		return decimal.Decimal{}, 0, errors.New("failed to decode getAmountsOut output")
	}

	// The router returns one amount per hop; only the final output matters.
	raw := amounts[len(amounts)-1]
	price := decimal.NewFromBigInt(raw, -o.opts.OutDecimals)

	blockNumber, err := client.BlockNumber(ctx)
	if err != nil {
		return decimal.Decimal{}, 0, err
	}

	return price, blockNumber, nil
}

func (o *Oracle) getClient(ctx context.Context) (*ethclient.Client, error) {
	o.clientMux.Lock()
	defer o.clientMux.Unlock()

	if o.client != nil {
		return o.client, nil
	}

	client, err := ethclient.DialContext(ctx, o.opts.RPCURL)
	if err != nil {
		return nil, err
	}
	o.client = client
	return client, nil
}

var _ PriceSource = (*Oracle)(nil)
