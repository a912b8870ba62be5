package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"kioskboard/internal/backend"
	"kioskboard/internal/config"
	"kioskboard/internal/kitchen"
	"kioskboard/internal/models"
	"kioskboard/internal/poll"
	"kioskboard/internal/utils"
)

var errUsage = errors.New("usage")

func main() {
	cmd := flag.String("cmd", "orders", "Command: checkins|complete|checkin|orders|order|status|advance|watch")
	id := flag.String("id", "", "Check-in or order ID (for complete/order/status/advance)")
	phone := flag.String("phone", "", "Customer phone (for checkin)")
	name := flag.String("name", "", "Customer name (for checkin)")
	status := flag.String("status", "", "Order status (for status)")
	serverFlag := flag.String("server", "", "Override backend base URL (e.g. http://localhost:5000/)")
	flag.Parse()

	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	if *serverFlag != "" {
		cfg.BackendURL = config.NormalizeBaseURL(*serverFlag)
	}
	log, err := utils.NewLogger(cfg.LogFile, "warn")
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	defer log.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	c := backend.NewClient(cfg, nil, log)

	switch *cmd {
	case "checkins":
		err = listCheckIns(ctx, c, os.Stdout)
	case "complete":
		err = need(*id, "--id")
		if err == nil {
			err = c.CompleteCheckIn(ctx, *id)
		}
		if err == nil {
			fmt.Println("Check-in", *id, "completed")
		}
	case "checkin":
		err = need(*phone, "--phone")
		if err == nil {
			err = checkIn(ctx, c, *phone, *name)
		}
	case "orders":
		err = listOrders(ctx, c, os.Stdout)
	case "order":
		err = need(*id, "--id")
		if err == nil {
			err = showOrder(ctx, c, *id, os.Stdout)
		}
	case "status":
		err = need(*id, "--id")
		if err == nil {
			err = setStatus(ctx, c, *id, *status)
		}
	case "advance":
		err = need(*id, "--id")
		if err == nil {
			err = advance(ctx, c, *id)
		}
	case "watch":
		err = watch(ctx, c, cfg.PollInterval)
	default:
		err = fmt.Errorf("%w: unknown command %q", errUsage, *cmd)
	}

	if err != nil {
		var httpErr *utils.HTTPError
		switch {
		case errors.As(err, &httpErr):
			fmt.Fprintf(os.Stderr, "Error: backend returned %d: %s\n", httpErr.Code, httpErr.Message)
		default:
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		if errors.Is(err, errUsage) {
			flag.Usage()
		}
		os.Exit(1)
	}
}

func need(value, flagName string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%w: %s required", errUsage, flagName)
	}
	return nil
}

func checkIn(ctx context.Context, c *backend.Client, phone, name string) error {
	res, err := c.CheckIn(ctx, phone, name)
	if err != nil {
		return err
	}
	fmt.Printf("Checked in %s (%s): %d reward points\n", res.CustomerName, res.CustomerPhone, res.RewardPoints)
	return nil
}

func listCheckIns(ctx context.Context, c *backend.Client, out io.Writer) error {
	list, err := c.ListCheckIns(ctx)
	if err != nil {
		return err
	}
	printCheckIns(out, list)
	return nil
}

func printCheckIns(out io.Writer, list []models.CheckIn) {
	if len(list) == 0 {
		fmt.Fprintln(out, "No customers waiting")
		return
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPHONE\tTIME")
	for _, ci := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", ci.ID, ci.Name, ci.Phone, ci.ArrivedAt().Format(kitchen.TimeLayout))
	}
	tw.Flush()
}

func listOrders(ctx context.Context, c *backend.Client, out io.Writer) error {
	orders, err := c.ListOrders(ctx)
	if err != nil {
		return err
	}
	checkIns, err := c.ListCheckIns(ctx)
	if err != nil {
		return err
	}
	printOrders(out, orders, checkIns)
	return nil
}

func printOrders(out io.Writer, orders []models.Order, checkIns []models.CheckIn) {
	if len(orders) == 0 {
		fmt.Fprintln(out, "No orders to display")
		return
	}
	arriving := models.ArrivingPhones(checkIns)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNUMBER\tCUSTOMER\tPHONE\tSTATUS\tARRIVING\tTOTAL")
	for _, o := range orders {
		yes := "No"
		if o.Phone != "" && arriving[o.Phone] {
			yes = "Yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t$%s\n", o.ID, o.OrderNumber, o.Name, o.Phone, o.Status, yes, o.TotalAmount.StringFixed(2))
	}
	tw.Flush()
}

func showOrder(ctx context.Context, c *backend.Client, id string, out io.Writer) error {
	items, err := c.OrderItems(ctx, id)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Fprintln(out, "No products")
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PRODUCT\tQTY\tTOTAL\tNOTE")
	for _, it := range items {
		fmt.Fprintf(tw, "%s\tx%d\t$%s\t%s\n", it.ProductName, it.Quantity, it.TotalPrice.StringFixed(2), it.Note)
	}
	fmt.Fprintf(tw, "Subtotal\t\t$%s\t\n", models.ItemsSubtotal(items).StringFixed(2))
	return tw.Flush()
}

func setStatus(ctx context.Context, c *backend.Client, id, raw string) error {
	st, err := models.ParseOrderStatus(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if err := c.UpdateOrderStatus(ctx, id, st); err != nil {
		return err
	}
	fmt.Printf("Order %s is now %s\n", id, st)
	return nil
}

func advance(ctx context.Context, c *backend.Client, id string) error {
	orders, err := c.ListOrders(ctx)
	if err != nil {
		return err
	}
	for _, o := range orders {
		if o.ID != id {
			continue
		}
		next, ok := o.Status.Next()
		if !ok {
			return fmt.Errorf("order %s is already %s", id, o.Status)
		}
		if err := c.UpdateOrderStatus(ctx, id, next); err != nil {
			return err
		}
		fmt.Printf("Order %s: %s -> %s\n", id, o.Status, next)
		return nil
	}
	return fmt.Errorf("order %s is not active", id)
}

// watch prints both lists on every poll until interrupted.
func watch(ctx context.Context, c *backend.Client, interval time.Duration) error {
	h := poll.Start(poll.RealClock{}, interval, func(ctx context.Context) {
		fmt.Printf("\n== %s ==\n", time.Now().Format(kitchen.TimeLayout))
		if err := listOrders(ctx, c, os.Stdout); err != nil && ctx.Err() == nil {
			fmt.Fprintln(os.Stderr, "Error fetching orders:", err)
		}
	})
	<-ctx.Done()
	h.Stop()
	return nil
}
