package console

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"

	"ledgerlite/internal/core"
	"ledgerlite/internal/export"
)

type command struct {
	usage       string
	description string
	run         func(c *Console, ctx context.Context, args []string) error
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"help":       {"help", "list commands", (*Console).help},
		"income":     {"income <amount> <category> [date] [note...]", "record an income", (*Console).addIncome},
		"expense":    {"expense <amount> <category> [date] [note...]", "record an expense", (*Console).addExpense},
		"list":       {"list [YYYY-MM]", "list transactions", (*Console).list},
		"remove":     {"remove <id>", "delete a transaction", (*Console).remove},
		"undo":       {"undo", "revert the most recent add", (*Console).undo},
		"balance":    {"balance", "show totals and balance", (*Console).balance},
		"summary":    {"summary [from to]", "period summary (default: current month)", (*Console).summary},
		"top":        {"top [n]", "largest expenses (default 10)", (*Console).top},
		"categories": {"categories", "list categories", (*Console).categories},
		"category":   {"category add <CODE> <name...> | category rm <CODE>", "manage categories", (*Console).category},
		"budget":     {"budget set|rm|status <YYYY-MM> <CATEGORY> [limit]", "manage budgets", (*Console).budget},
		"budgets":    {"budgets", "list budgets with usage", (*Console).budgets},
		"import":     {"import <file.csv>", "import date,type,amount,category,note records", (*Console).importCSV},
		"export":     {"export report <YYYY-MM> <file.csv|file.json|sheets> | export transactions <file>", "export data", (*Console).export},
		"save":       {"save [force]", "flush the ledger to storage", (*Console).save},
	}
}

func (c *Console) help(context.Context, []string) error {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	bold.Fprintln(c.out, "Commands:")
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	for _, name := range names {
		fmt.Fprintf(tw, "  %s\t%s\n", commands[name].usage, commands[name].description)
	}
	fmt.Fprintf(tw, "  %s\t%s\n", "exit", "save and quit")
	return tw.Flush()
}

func (c *Console) addIncome(ctx context.Context, args []string) error {
	return c.add(ctx, core.KindIncome, args)
}

func (c *Console) addExpense(ctx context.Context, args []string) error {
	return c.add(ctx, core.KindExpense, args)
}

func (c *Console) add(ctx context.Context, kind core.Kind, args []string) error {
	if len(args) < 2 {
		return usageError{commands[strings.ToLower(string(kind))].usage}
	}
	engine := c.svc.Engine()

	amount, err := core.ParseMoney(args[0], engine.Currency())
	if err != nil {
		return err
	}
	category := args[1]

	// An optional date follows the category; anything else is the note.
	date := engine.Today()
	rest := args[2:]
	if len(rest) > 0 {
		if d, err := core.ParseDate(rest[0]); err == nil {
			date = d
			rest = rest[1:]
		}
	}
	note := strings.Join(rest, " ")

	var tx core.Transaction
	if kind == core.KindIncome {
		tx, err = c.svc.AddIncome(ctx, date, amount, category, note)
	} else {
		tx, err = c.svc.AddExpense(ctx, date, amount, category, note)
	}
	if err != nil {
		return err
	}
	c.successf("%s %s %s on %s (id %s)", kind.Label(), tx.Amount, tx.Category, tx.Date, tx.ID)
	return nil
}

func (c *Console) list(_ context.Context, args []string) error {
	txs := c.svc.Engine().Transactions()
	if len(args) > 0 {
		period, err := core.ParsePeriod(args[0])
		if err != nil {
			return err
		}
		filtered := txs[:0]
		for _, tx := range txs {
			if period.Contains(tx.Date) {
				filtered = append(filtered, tx)
			}
		}
		txs = filtered
	}
	if len(txs) == 0 {
		c.printf("No transactions.\n")
		return nil
	}
	return c.printTransactions(txs)
}

func (c *Console) printTransactions(txs []core.Transaction) error {
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tTYPE\tAMOUNT\tCATEGORY\tNOTE")
	for _, tx := range txs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", tx.ID, tx.Date, tx.Kind, tx.Amount, tx.Category, tx.Note)
	}
	return tw.Flush()
}

func (c *Console) remove(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usageError{commands["remove"].usage}
	}
	id, err := uuid.Parse(args[0])
	if err != nil {
		return core.NewValidationError("id", fmt.Sprintf("malformed transaction id %q", args[0]), nil)
	}
	tx, err := c.svc.RemoveTransaction(ctx, id)
	if err != nil {
		return err
	}
	c.successf("Removed %s", tx)
	return nil
}

func (c *Console) undo(ctx context.Context, _ []string) error {
	res, err := c.svc.Undo(ctx)
	if err != nil {
		return err
	}
	if !res.Performed {
		c.warnf("Nothing to undo")
		return nil
	}
	c.successf("Undone: %s", res.Action.Description)
	return nil
}

func (c *Console) balance(context.Context, []string) error {
	engine := c.svc.Engine()
	income, err := engine.TotalIncome()
	if err != nil {
		return err
	}
	expense, err := engine.TotalExpense()
	if err != nil {
		return err
	}
	balance, err := engine.Balance()
	if err != nil {
		return err
	}
	c.printf("Income:  %s\nExpense: %s\n", income, expense)
	if balance.IsNegative() {
		red.Fprintf(c.out, "Balance: %s\n", balance)
	} else {
		green.Fprintf(c.out, "Balance: %s\n", balance)
	}
	return nil
}

func (c *Console) summary(_ context.Context, args []string) error {
	engine := c.svc.Engine()
	var (
		sum core.PeriodSummary
		err error
	)
	switch len(args) {
	case 0:
		sum, err = engine.CurrentMonthSummary()
	case 2:
		from, ferr := core.ParseDate(args[0])
		if ferr != nil {
			return ferr
		}
		to, terr := core.ParseDate(args[1])
		if terr != nil {
			return terr
		}
		sum, err = engine.PeriodSummary(from, to)
	default:
		return usageError{commands["summary"].usage}
	}
	if err != nil {
		return err
	}

	bold.Fprintf(c.out, "Summary %s .. %s\n", sum.From, sum.To)
	c.printf("Income:       %s\nExpense:      %s\nBalance:      %s\nTransactions: %d\n",
		sum.TotalIncome, sum.TotalExpense, sum.Balance, sum.TransactionCount)
	if len(sum.TopCategories) > 0 {
		c.printf("Expenses by category:\n")
		tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
		for _, ca := range sum.TopCategories {
			fmt.Fprintf(tw, "  %s\t%s\n", ca.Category, ca.Amount)
		}
		return tw.Flush()
	}
	return nil
}

func (c *Console) top(_ context.Context, args []string) error {
	n := 10
	if len(args) > 0 {
		v, err := strconv.Atoi(args[0])
		if err != nil || v <= 0 {
			return usageError{commands["top"].usage}
		}
		n = v
	}
	txs := c.svc.Engine().TopExpenses(n)
	if len(txs) == 0 {
		c.printf("No expenses.\n")
		return nil
	}
	return c.printTransactions(txs)
}

func (c *Console) categories(context.Context, []string) error {
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	for _, cat := range c.svc.Engine().Categories() {
		fmt.Fprintf(tw, "  %s\t%s\n", cat.Code, cat.Name)
	}
	return tw.Flush()
}

func (c *Console) category(_ context.Context, args []string) error {
	usage := usageError{commands["category"].usage}
	if len(args) < 2 {
		return usage
	}
	engine := c.svc.Engine()
	switch strings.ToLower(args[0]) {
	case "add":
		if len(args) < 3 {
			return usage
		}
		cat, err := engine.AddCategory(args[1], strings.Join(args[2:], " "))
		if err != nil {
			return err
		}
		c.successf("Category %s (%s) added", cat.Code, cat.Name)
	case "rm", "remove":
		if err := engine.RemoveCategory(args[1]); err != nil {
			return err
		}
		c.successf("Category %s removed", core.NormalizeCode(args[1]))
	default:
		return usage
	}
	return nil
}

func (c *Console) budget(_ context.Context, args []string) error {
	usage := usageError{commands["budget"].usage}
	if len(args) < 3 {
		return usage
	}
	engine := c.svc.Engine()
	period, err := core.ParsePeriod(args[1])
	if err != nil {
		return err
	}
	category := args[2]

	switch strings.ToLower(args[0]) {
	case "set":
		if len(args) != 4 {
			return usage
		}
		limit, err := core.ParseMoney(args[3], engine.Currency())
		if err != nil {
			return err
		}
		b, err := engine.SetBudget(period, category, limit)
		if err != nil {
			return err
		}
		c.successf("Budget %s %s set to %s", b.Period, b.Category, b.Limit)
	case "rm", "remove":
		if err := engine.RemoveBudget(period, category); err != nil {
			return err
		}
		c.successf("Budget %s %s removed", period, core.NormalizeCode(category))
	case "status":
		st, err := engine.BudgetStatus(period, category)
		if err != nil {
			return err
		}
		c.printBudgetStatus(st)
	default:
		return usage
	}
	return nil
}

func (c *Console) budgets(context.Context, []string) error {
	engine := c.svc.Engine()
	budgets := engine.Budgets()
	if len(budgets) == 0 {
		c.printf("No budgets.\n")
		return nil
	}
	for _, b := range budgets {
		st, err := engine.BudgetStatus(b.Period, b.Category)
		if err != nil {
			return err
		}
		c.printBudgetStatus(st)
	}
	return nil
}

func (c *Console) printBudgetStatus(st core.BudgetStatus) {
	line := fmt.Sprintf("%s %-8s limit %s, spent %s (%s%%), remaining %s",
		st.Budget.Period, st.Budget.Category, st.Budget.Limit, st.Spent, st.UsagePercent.StringFixed(1), st.Remaining)
	if st.Exceeded {
		red.Fprintln(c.out, line+" EXCEEDED")
		return
	}
	fmt.Fprintln(c.out, line)
}

func (c *Console) importCSV(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usageError{commands["import"].usage}
	}
	res, err := c.importer.ImportFile(ctx, args[0])
	if err != nil {
		return err
	}
	c.successf("Imported %d of %d rows (%d failed, %d skipped)", res.Succeeded, res.Total, res.Failed, res.Skipped)
	for _, rowErr := range res.Errors {
		c.warnf("%v", rowErr)
	}
	return nil
}

func (c *Console) export(ctx context.Context, args []string) error {
	usage := usageError{commands["export"].usage}
	if len(args) < 2 {
		return usage
	}
	engine := c.svc.Engine()

	switch strings.ToLower(args[0]) {
	case "report":
		if len(args) != 3 {
			return usage
		}
		period, err := core.ParsePeriod(args[1])
		if err != nil {
			return err
		}
		rows, err := engine.MonthlyRows(period)
		if err != nil {
			return err
		}
		dest := args[2]
		if strings.EqualFold(dest, "sheets") {
			if c.sheets == nil {
				return errors.New("google sheets export is not configured")
			}
			if err := c.sheets.Export(ctx, rows); err != nil {
				return err
			}
			c.successf("Exported %d rows to Google Sheets", len(rows))
			return nil
		}
		if err := export.WriteReportFile(ctx, dest, rows); err != nil {
			return err
		}
		c.successf("Exported %d rows to %s", len(rows), dest)
	case "transactions":
		txs := engine.Transactions()
		if err := export.WriteTransactionsFile(args[1], txs); err != nil {
			return err
		}
		c.successf("Exported %d transactions to %s", len(txs), args[1])
	default:
		return usage
	}
	return nil
}

func (c *Console) save(ctx context.Context, args []string) error {
	switch {
	case len(args) == 0:
		if err := c.svc.Save(ctx); err != nil {
			if errors.Is(err, core.ErrStoreNotLoaded) {
				c.warnf("The stored ledger could not be read at startup. Run 'save force' to replace it with this session.")
				return nil
			}
			return err
		}
	case len(args) == 1 && strings.EqualFold(args[0], "force"):
		if err := c.svc.Overwrite(ctx); err != nil {
			return err
		}
	default:
		return usageError{commands["save"].usage}
	}
	c.successf("Saved")
	return nil
}
