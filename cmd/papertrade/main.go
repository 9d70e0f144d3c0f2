package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/bobmcallan/papertrade/internal/clients/trading"
	"github.com/bobmcallan/papertrade/internal/common"
	"github.com/bobmcallan/papertrade/internal/interfaces"
	"github.com/bobmcallan/papertrade/internal/models"
	"github.com/bobmcallan/papertrade/internal/services/portfolio"
	"github.com/bobmcallan/papertrade/internal/services/session"
	"github.com/bobmcallan/papertrade/internal/storage/credentials"
)

const usage = `papertrade - simulated stock trading client

Usage:
  papertrade [-config path] <command> [args]

Commands:
  login <email> <password>   Log in and store the session
  logout                     Log out and clear stored credentials
  dashboard                  Show holdings, valuation, and totals
  orders                     Show order history
  pending                    Show pending orders
  buy <code> <qty> [price]   Place a buy order (market unless price given)
  sell <code> <qty> [price]  Place a sell order (market unless price given)
  cancel <order-id>          Cancel a pending order
  search <query>             Search stocks by name or code
  version                    Print version information
`

type cli struct {
	config    *common.Config
	logger    *common.Logger
	creds     interfaces.CredentialStore
	client    *trading.Client
	session   interfaces.SessionService
	portfolio interfaces.PortfolioService
}

func main() {
	configPath := flag.String("config", os.Getenv("PAPERTRADE_CONFIG"), "path to config file")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	if args[0] == "version" {
		fmt.Println(common.GetFullVersion())
		return
	}

	c, err := newCLI(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "papertrade: %v\n", err)
		os.Exit(1)
	}
	defer c.creds.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	if err := c.run(ctx, args[0], args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "papertrade: %v\n", err)
		os.Exit(1)
	}
}

func newCLI(configPath string) (*cli, error) {
	config, err := common.LoadConfig(configPath, "papertrade.toml")
	if err != nil {
		return nil, err
	}
	logger := common.NewLoggerWithFormat(config.Logging.Level, config.Logging.Format)

	creds, err := credentials.NewStore(config.Storage.Credentials, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open credential store: %w", err)
	}

	client := trading.NewClient(creds,
		trading.WithBaseURL(config.Server.BaseURL),
		trading.WithTimeout(config.Server.GetTimeout()),
		trading.WithRateLimit(config.Server.RateLimit),
		trading.WithLogger(logger),
	)

	sess := session.NewService(client, creds, logger)
	port := portfolio.NewService(client, sess, config.Session.InitialAssets, logger)

	return &cli{
		config:    config,
		logger:    logger,
		creds:     creds,
		client:    client,
		session:   sess,
		portfolio: port,
	}, nil
}

func (c *cli) run(ctx context.Context, command string, args []string) error {
	switch command {
	case "login":
		if len(args) != 2 {
			return fmt.Errorf("usage: papertrade login <email> <password>")
		}
		if err := c.session.Login(ctx, args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("Logged in as %s (cash balance %s)\n", args[0], formatWon(c.session.CashBalance()))
		return nil

	case "logout":
		if err := c.session.Logout(ctx); err != nil {
			return err
		}
		fmt.Println("Logged out")
		return nil

	case "dashboard":
		return c.dashboard(ctx)

	case "orders":
		orders, err := c.client.GetOrders(ctx)
		if err != nil {
			return err
		}
		printOrders(orders)
		return nil

	case "pending":
		orders, err := c.client.GetPendingOrders(ctx)
		if err != nil {
			return err
		}
		printOrders(orders)
		return nil

	case "buy":
		return c.placeOrder(ctx, models.OrderTypeBuy, args)

	case "sell":
		return c.placeOrder(ctx, models.OrderTypeSell, args)

	case "cancel":
		if len(args) != 1 {
			return fmt.Errorf("usage: papertrade cancel <order-id>")
		}
		orderID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid order id %q", args[0])
		}
		if err := c.portfolio.CancelOrder(ctx, orderID); err != nil {
			return err
		}
		fmt.Printf("Order %d canceled\n", orderID)
		return nil

	case "search":
		if len(args) != 1 {
			return fmt.Errorf("usage: papertrade search <query>")
		}
		results, err := c.client.SearchStocks(ctx, args[0])
		if err != nil {
			return err
		}
		for _, r := range results {
			fmt.Printf("%-8s %-12s %12s %8.2f%%\n", r.Code, r.Name, formatWon(r.Price.Float64()), r.ChangeRate)
		}
		if len(results) == 0 {
			fmt.Println("No results")
		}
		return nil

	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func (c *cli) dashboard(ctx context.Context) error {
	if err := c.session.Init(ctx); err != nil {
		return err
	}
	if !c.session.IsLoggedIn() {
		return fmt.Errorf("not logged in, run: papertrade login <email> <password>")
	}

	snap, err := c.portfolio.Load(ctx)
	if err != nil {
		return err
	}
	if snap.Error != "" {
		fmt.Printf("Warning: %s\n", snap.Error)
	}

	if snap.UserInfo != nil {
		fmt.Printf("%s <%s>\n", snap.UserInfo.Nickname, snap.UserInfo.Email)
	}
	if exp, ok := c.session.TokenExpiry(ctx); ok {
		fmt.Printf("Session valid until %s\n", exp.Local().Format("2006-01-02 15:04:05"))
	}
	fmt.Println()

	fmt.Println("Holdings:")
	for _, h := range snap.Holdings {
		fmt.Printf("  %-8s %-12s %5d @ %12s  value %14s\n",
			h.Stock.Code, h.Stock.Name, h.TotalQuantity,
			formatWon(h.AveragePurchasePrice.Float64()), formatWon(h.MarketValue()))
	}
	if len(snap.Holdings) == 0 {
		fmt.Println("  (none)")
	}
	fmt.Println()

	v := snap.Valuation
	fmt.Printf("Stock value:   %s\n", formatWon(v.TotalStockValue))
	fmt.Printf("Stock profit:  %s (%.2f%%)\n", formatWon(v.TotalStockProfit), v.TotalStockProfitRate)
	fmt.Printf("Cash balance:  %s\n", formatWon(c.session.CashBalance()))
	fmt.Printf("Total assets:  %s\n", formatWon(c.portfolio.TotalAssets()))
	fmt.Printf("Overall rate:  %.2f%%\n", c.portfolio.OverallProfitRate())

	if len(snap.PendingOrders) > 0 {
		fmt.Println()
		fmt.Println("Pending orders:")
		printOrders(snap.PendingOrders)
	}
	return nil
}

func (c *cli) placeOrder(ctx context.Context, orderType models.OrderType, args []string) error {
	if len(args) < 2 || len(args) > 3 {
		return fmt.Errorf("usage: papertrade %s <code> <qty> [price]", orderType)
	}
	quantity, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid quantity %q", args[1])
	}

	req := models.OrderRequest{
		Stock:     args[0],
		OrderType: orderType,
		Quantity:  quantity,
		PriceType: models.PriceTypeMarket,
	}
	if len(args) == 3 {
		price, err := strconv.ParseFloat(args[2], 64)
		if err != nil {
			return fmt.Errorf("invalid price %q", args[2])
		}
		req.PriceType = models.PriceTypeLimit
		req.LimitPrice = &price
	}

	order, err := c.portfolio.PlaceOrder(ctx, req)
	if err != nil {
		return err
	}
	fmt.Printf("Order %d %s: %s x%d (%s)\n", order.ID, order.Status, order.Stock.Name, order.Quantity, order.PriceType)
	return nil
}

func printOrders(orders []models.Order) {
	for _, o := range orders {
		price := "-"
		if o.ExecutedPrice.Float64() > 0 {
			price = formatWon(o.ExecutedPrice.Float64())
		} else if o.LimitPrice.Float64() > 0 {
			price = formatWon(o.LimitPrice.Float64())
		}
		fmt.Printf("  #%-6d %-4s %-12s %5d @ %12s  %-9s %s\n",
			o.ID, o.OrderType, o.Stock.Name, o.Quantity, price, o.Status, o.Timestamp)
	}
	if len(orders) == 0 {
		fmt.Println("  (none)")
	}
}

// formatWon renders an amount with comma grouping, no decimals.
func formatWon(v float64) string {
	n := int64(v)
	sign := ""
	if n < 0 {
		sign = "-"
		n = -n
	}
	s := strconv.FormatInt(n, 10)
	out := ""
	for i, d := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			out += ","
		}
		out += string(d)
	}
	return sign + out + "원"
}
