package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"bill-backend/internal/billing"
	"bill-backend/internal/catalog"
	"bill-backend/internal/models"
	"bill-backend/internal/services"
	"bill-backend/internal/timeutil"
	"bill-backend/pkg/utils"
)

var errUsage = errors.New("usage")

// app holds the wired services a single command runs against
type app struct {
	out      io.Writer
	catalog  *catalog.Catalog
	cart     *billing.Cart
	history  *services.HistoryService
	bills    *services.BillService
	share    *services.ShareService
	orders   *services.OrderService
	receipts *services.ReceiptService
}

type command struct {
	usage string
	run   func(a *app, ctx context.Context, args []string) error
	// edits is set for commands that change the draft
	edits bool
}

var commands = map[string]command{
	"menu":     {usage: "menu [query]", run: (*app).menu},
	"add":      {usage: "add [-n count] <product id or name>", run: (*app).add, edits: true},
	"qty":      {usage: "qty <line> <quantity>", run: (*app).qty, edits: true},
	"dec":      {usage: "dec <line>", run: (*app).dec, edits: true},
	"remove":   {usage: "remove <line>", run: (*app).remove, edits: true},
	"customer": {usage: "customer [-name n] [-phone p] [-email e] [-address a] [-trn t] [-place p]", run: (*app).customer, edits: true},
	"number":   {usage: "number <invoice number>", run: (*app).number, edits: true},
	"date":     {usage: "date <YYYY-MM-DD>", run: (*app).date, edits: true},
	"show":     {usage: "show", run: (*app).show},
	"save":     {usage: "save", run: (*app).save, edits: true},
	"history":  {usage: "history", run: (*app).listHistory},
	"open":     {usage: "open <invoice number>", run: (*app).open},
	"edit":     {usage: "edit <invoice number>", run: (*app).edit},
	"delete":   {usage: "delete <invoice number>", run: (*app).deleteBill},
	"reset":    {usage: "reset", run: (*app).reset},
	"share":    {usage: "share [invoice number]", run: (*app).shareLinks},
	"resolve":  {usage: "resolve <share url>", run: (*app).resolve},
	"forward":  {usage: "forward [invoice number]", run: (*app).forward},
	"pdf":      {usage: "pdf [-o file] [invoice number]", run: (*app).pdf},
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "usage: pos [-config file] [-offline] [-menu file] <command> [args]")
	fmt.Fprintln(w, "\ncommands:")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %s\n", commands[name].usage)
	}
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, ok := commands[args[0]]
	if !ok {
		return fmt.Errorf("unknown command %q", args[0])
	}
	if cmd.edits && a.cart.ViewMode() {
		return errors.New("a saved bill is open for viewing; run 'edit' to change it or 'reset' to start a new invoice")
	}
	if err := cmd.run(a, ctx, args[1:]); err != nil {
		if errors.Is(err, errUsage) {
			return fmt.Errorf("usage: pos %s", cmd.usage)
		}
		return err
	}
	return nil
}

func (a *app) menu(ctx context.Context, args []string) error {
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tPRICE\tVAT%")
	for _, p := range a.catalog.Search(strings.Join(args, " ")) {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%v\n", p.ID, p.Name, p.Category, billing.FormatCurrency(p.Price), p.GSTRate)
	}
	return tw.Flush()
}

func (a *app) add(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	count := fs.Int("n", 1, "times to add")
	if err := fs.Parse(args); err != nil || fs.NArg() == 0 || *count < 1 {
		return errUsage
	}

	p, err := a.catalog.Resolve(strings.Join(fs.Args(), " "))
	if err != nil {
		return err
	}
	var line models.InvoiceItem
	for i := 0; i < *count; i++ {
		line = a.cart.AddItem(ctx, p)
	}
	fmt.Fprintf(a.out, "%s x%v = %s\n", line.Name, line.Qty, billing.FormatCurrency(line.Amount))
	return nil
}

// lineID accepts a 1-based line number or a line id
func (a *app) lineID(ref string) (string, error) {
	items := a.cart.Items()
	if n, err := strconv.Atoi(ref); err == nil {
		if n < 1 || n > len(items) {
			return "", fmt.Errorf("no line %d", n)
		}
		return items[n-1].ID, nil
	}
	for _, item := range items {
		if item.ID == ref {
			return item.ID, nil
		}
	}
	return "", fmt.Errorf("no line %q", ref)
}

func (a *app) qty(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errUsage
	}
	id, err := a.lineID(args[0])
	if err != nil {
		return err
	}
	q, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("invalid quantity %q", args[1])
	}
	a.cart.UpdateQty(ctx, id, q)
	return a.show(ctx, nil)
}

func (a *app) dec(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	id, err := a.lineID(args[0])
	if err != nil {
		return err
	}
	a.cart.DecrementQty(ctx, id)
	return a.show(ctx, nil)
}

func (a *app) remove(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	id, err := a.lineID(args[0])
	if err != nil {
		return err
	}
	a.cart.RemoveItem(ctx, id)
	return a.show(ctx, nil)
}

func (a *app) customer(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("customer", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	name := fs.String("name", "", "customer name")
	phone := fs.String("phone", "", "UAE mobile number")
	email := fs.String("email", "", "email address")
	address := fs.String("address", "", "delivery address")
	trn := fs.String("trn", "", "tax registration number")
	place := fs.String("place", "", "place of supply")
	if err := fs.Parse(args); err != nil || fs.NArg() != 0 {
		return errUsage
	}

	var patch billing.CustomerPatch
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "name":
			patch.Name = name
		case "phone":
			patch.Phone = phone
		case "email":
			patch.Email = email
		case "address":
			patch.Address = address
		case "trn":
			patch.GSTIN = trn
		case "place":
			patch.PlaceOfSupply = place
		}
	})
	a.cart.SetCustomer(ctx, patch)
	return a.show(ctx, nil)
}

func (a *app) number(ctx context.Context, args []string) error {
	if len(args) != 1 || strings.TrimSpace(args[0]) == "" {
		return errUsage
	}
	a.cart.SetInvoiceNumber(ctx, strings.TrimSpace(args[0]))
	return nil
}

func (a *app) date(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	d, err := time.ParseInLocation(timeutil.DateLayout, args[0], timeutil.GST)
	if err != nil {
		return fmt.Errorf("invalid date %q, want YYYY-MM-DD", args[0])
	}
	a.cart.SetDate(ctx, d)
	return nil
}

func (a *app) show(ctx context.Context, args []string) error {
	d := a.cart.Snapshot()
	title := "Invoice"
	if d.ViewMode {
		title = "Invoice (viewing)"
	}
	fmt.Fprintf(a.out, "%s %s", title, d.InvoiceNumber)
	if !d.Date.IsZero() {
		fmt.Fprintf(a.out, "  %s", timeutil.FormatGST(d.Date, timeutil.DateLayout))
	}
	fmt.Fprintln(a.out)
	if c := d.Customer; c.Name != "" || c.Phone != "" {
		fmt.Fprintf(a.out, "Customer: %s %s\n", c.Name, c.Phone)
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "#\tITEM\tQTY\tRATE\tAMOUNT\tVAT\t")
	for i, item := range d.Items {
		fmt.Fprintf(tw, "%d\t%s\t%v\t%s\t%s\t%s\t\n", i+1, item.Name, item.Qty,
			billing.FormatCurrency(item.Rate), billing.FormatCurrency(item.Amount), billing.FormatCurrency(item.GSTAmount))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Subtotal %s  VAT %s  Total %s\n",
		billing.FormatCurrency(billing.Subtotal(d.Items)),
		billing.FormatCurrency(billing.TotalTax(d.Items)),
		billing.FormatCurrency(billing.GrandTotal(d.Items)))
	return nil
}

func (a *app) save(ctx context.Context, args []string) error {
	bill, err := a.bills.Save(ctx, a.cart.Snapshot(), true)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Bill %s saved (%s)\n", bill.InvoiceNumber, billing.FormatCurrency(bill.Total))
	return nil
}

func (a *app) listHistory(ctx context.Context, args []string) error {
	bills := a.history.Bills()
	if len(bills) == 0 {
		fmt.Fprintln(a.out, "No saved bills")
		return nil
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "INVOICE\tDATE\tCUSTOMER\tTOTAL\tYAADRO")
	for _, b := range bills {
		date := ""
		if !b.Date.IsZero() {
			date = timeutil.FormatGST(b.Date, timeutil.DateLayout)
		}
		sent := ""
		if b.YaadroSentAt != nil {
			sent = timeutil.FormatGST(*b.YaadroSentAt, timeutil.DateTimeLayout)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", b.InvoiceNumber, date, b.Customer.Name, billing.FormatCurrency(b.Total), sent)
	}
	return tw.Flush()
}

func (a *app) savedBill(ctx context.Context, invoiceNumber string) (models.Bill, error) {
	bill, err := a.history.Get(ctx, invoiceNumber)
	if err != nil {
		return models.Bill{}, err
	}
	if bill == nil {
		return models.Bill{}, fmt.Errorf("%s: %w", invoiceNumber, services.ErrBillNotFound)
	}
	return *bill, nil
}

func (a *app) open(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	bill, err := a.savedBill(ctx, args[0])
	if err != nil {
		return err
	}
	a.cart.LoadInvoice(ctx, bill)
	return a.show(ctx, nil)
}

func (a *app) edit(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	bill, err := a.savedBill(ctx, args[0])
	if err != nil {
		return err
	}
	a.cart.EditInvoice(ctx, bill)
	return a.show(ctx, nil)
}

func (a *app) deleteBill(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	if !a.history.Delete(ctx, args[0]) {
		return fmt.Errorf("could not delete %s", args[0])
	}
	fmt.Fprintf(a.out, "Bill %s deleted\n", args[0])
	return nil
}

func (a *app) reset(ctx context.Context, args []string) error {
	if !a.cart.ExitView(ctx) {
		a.cart.Reset(ctx)
	}
	fmt.Fprintf(a.out, "New invoice %s\n", a.cart.InvoiceNumber())
	return nil
}

// target is the named saved bill, or the current draft's saved bill
func (a *app) target(ctx context.Context, args []string) (models.Bill, error) {
	switch len(args) {
	case 0:
		return a.savedBill(ctx, a.cart.InvoiceNumber())
	case 1:
		return a.savedBill(ctx, args[0])
	}
	return models.Bill{}, errUsage
}

func (a *app) shareLinks(ctx context.Context, args []string) error {
	bill, err := a.target(ctx, args)
	if err != nil {
		return err
	}
	short, full, err := a.share.Links(bill)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Short link: %s\nOffline link: %s\n", short, full)
	return nil
}

func (a *app) resolve(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	bill, source, err := a.share.ResolveURL(ctx, args[0])
	if err != nil {
		return err
	}
	a.cart.LoadInvoice(ctx, bill)
	fmt.Fprintf(a.out, "Loaded from %s\n", source)
	return a.show(ctx, nil)
}

func (a *app) forward(ctx context.Context, args []string) error {
	bill, err := a.target(ctx, args)
	if err != nil {
		return err
	}
	res := a.orders.Forward(ctx, bill)
	if !res.OK {
		if res.Retryable {
			return fmt.Errorf("%s (try again)", res.Error)
		}
		return errors.New(res.Error)
	}
	fmt.Fprintf(a.out, "Order sent to Yaadro at %s\n", timeutil.FormatGST(*res.SentAt, timeutil.DateTimeLayout))
	if len(res.Response) > 0 {
		fmt.Fprintf(a.out, "%s\n", res.Response)
	}
	return nil
}

func (a *app) pdf(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("pdf", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	out := fs.String("o", "", "output file (default <invoice>.pdf in the working directory)")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	bill, err := a.target(ctx, fs.Args())
	if err != nil {
		return err
	}
	path := *out
	if path == "" {
		path = defaultPDFPath(bill.InvoiceNumber)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := a.receipts.Write(f, bill); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Wrote %s\n", path)
	return nil
}

// defaultPDFPath names the receipt after the invoice in the working
// directory; shared links can carry any invoice number.
func defaultPDFPath(invoiceNumber string) string {
	return utils.SafeFilename(invoiceNumber) + ".pdf"
}
