package main

import (
	"context"
	"finance-tracker-client/internal/model"
	"finance-tracker-client/internal/service"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

type command func(ctx context.Context, a *app, args []string) error

var commands = map[string]command{
	"register":       registerCommand,
	"login":          loginCommand,
	"verify":         verifyCommand,
	"logout":         logoutCommand,
	"whoami":         whoamiCommand,
	"entries":        entriesCommand,
	"add-entry":      addEntryCommand,
	"tags":           tagsCommand,
	"categories":     categoriesCommand,
	"stats":          statsCommand,
	"export":         exportCommand,
	"reset-password": resetPasswordCommand,
}

func registerCommand(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	username := fs.String("username", "", "имя пользователя")
	email := fs.String("email", "", "e-mail")
	password := fs.String("password", os.Getenv("FINANCE_PASSWORD"), "пароль (или FINANCE_PASSWORD)")
	firstName := fs.String("first-name", "", "имя")
	lastName := fs.String("last-name", "", "фамилия")
	if err := fs.Parse(args); err != nil {
		return err
	}

	request := model.RegisterRequest{Username: *username, Email: *email, Password: *password}
	if *firstName != "" {
		request.FirstName = firstName
	}
	if *lastName != "" {
		request.LastName = lastName
	}

	if err := a.sessions.Register(ctx, request); err != nil {
		return err
	}
	fmt.Printf("Пользователь %s зарегистрирован, код подтверждения отправлен на %s\n", *username, *email)
	return nil
}

func loginCommand(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	username := fs.String("username", "", "имя пользователя")
	password := fs.String("password", os.Getenv("FINANCE_PASSWORD"), "пароль (или FINANCE_PASSWORD)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	user, err := a.sessions.Login(ctx, *username, *password)
	if err != nil {
		return err
	}
	fmt.Printf("Добро пожаловать, %s\n", user.DisplayName())
	if !user.IsEmailVerified {
		fmt.Println("E-mail не подтверждён: finance-cli verify -code <код>")
	}
	return nil
}

func verifyCommand(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	code := fs.String("code", "", "код из письма")
	if err := fs.Parse(args); err != nil {
		return err
	}

	user, err := a.sessions.VerifyEmail(ctx, *code)
	if err != nil {
		return err
	}
	fmt.Printf("E-mail %s подтверждён\n", user.Email)
	return nil
}

func logoutCommand(ctx context.Context, a *app, _ []string) error {
	return a.sessions.Logout(ctx)
}

func whoamiCommand(ctx context.Context, a *app, _ []string) error {
	user, err := a.sessions.WhoAmI(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Пользователь\t%s\n", user.Username)
	fmt.Fprintf(tw, "Имя\t%s\n", user.DisplayName())
	fmt.Fprintf(tw, "E-mail\t%s\n", user.Email)
	fmt.Fprintf(tw, "Подтверждён\t%t\n", user.IsEmailVerified)
	return tw.Flush()
}

func entriesCommand(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("entries", flag.ContinueOnError)
	from, to := periodFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	start, end, err := parsePeriod(*from, *to)
	if err != nil {
		return err
	}

	entries, err := a.entries.List(ctx, start, end)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tДата\tТип\tСумма\tОписание")
	for _, entry := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s %s\t%s\n",
			entry.ID, entry.Date.Format(dateLayout), entry.Type,
			entry.Amount.StringFixed(2), entry.Currency, entry.Description)
	}
	return tw.Flush()
}

func addEntryCommand(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("add-entry", flag.ContinueOnError)
	entryType := fs.String("type", string(model.EntryTypeCost), "INCOME или COST")
	amount := fs.String("amount", "", "сумма, например 12.50")
	currency := fs.String("currency", "EUR", "валюта")
	date := fs.String("date", time.Now().Format(dateLayout), "дата YYYY-MM-DD")
	description := fs.String("description", "", "описание")
	category := fs.String("category", "", "ID категории")
	tags := fs.String("tags", "", "ID тегов через запятую")
	if err := fs.Parse(args); err != nil {
		return err
	}

	value, err := decimal.NewFromString(*amount)
	if err != nil {
		return fmt.Errorf("некорректная сумма %q: %w", *amount, err)
	}
	day, err := time.Parse(dateLayout, *date)
	if err != nil {
		return fmt.Errorf("некорректная дата %q: %w", *date, err)
	}

	entry := model.Entry{
		Type:        model.EntryType(strings.ToUpper(*entryType)),
		Amount:      value,
		Currency:    *currency,
		Date:        day,
		Description: *description,
		TagIDs:      splitList(*tags),
	}
	if !entry.Type.Valid() {
		return fmt.Errorf("тип записи должен быть INCOME или COST")
	}
	if *category != "" {
		entry.CategoryID = category
	}

	created, err := a.entries.Create(ctx, entry)
	if err != nil {
		return err
	}
	fmt.Printf("Запись %s создана\n", created.ID)
	return nil
}

func tagsCommand(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("tags", flag.ContinueOnError)
	add := fs.String("add", "", "создать тег")
	remove := fs.String("delete", "", "удалить тег по ID")
	if err := fs.Parse(args); err != nil {
		return err
	}

	switch {
	case *add != "":
		tag, err := a.tags.Create(ctx, *add)
		if err != nil {
			return err
		}
		fmt.Printf("Тег %s создан (%s)\n", tag.Name, tag.ID)
		return nil
	case *remove != "":
		return a.tags.Delete(ctx, *remove)
	}

	tags, err := a.tags.List(ctx)
	if err != nil {
		return err
	}
	for _, tag := range tags {
		fmt.Printf("%s\t%s\n", tag.ID, tag.Name)
	}
	return nil
}

func categoriesCommand(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("categories", flag.ContinueOnError)
	add := fs.String("add", "", "создать категорию")
	categoryType := fs.String("type", string(model.EntryTypeCost), "INCOME или COST")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *add != "" {
		category, err := a.categories.Create(ctx, model.Category{
			Name: *add,
			Type: model.EntryType(strings.ToUpper(*categoryType)),
		})
		if err != nil {
			return err
		}
		fmt.Printf("Категория %s создана (%s)\n", category.Name, category.ID)
		return nil
	}

	categories, err := a.categories.List(ctx)
	if err != nil {
		return err
	}
	for _, category := range categories {
		fmt.Printf("%s\t%s\t%s\n", category.ID, category.Type, category.Name)
	}
	return nil
}

func statsCommand(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	from, to := periodFlags(fs)
	groupBy := fs.String("group", "type,category", "уровни группировки: type, category, tag, month")
	depth := fs.Int("depth", 0, "глубина дерева, 0 - всё дерево")
	path := fs.String("path", "", "показать только группу, например Food/Groceries")
	asCSV := fs.Bool("csv", false, "вывод в CSV")
	if err := fs.Parse(args); err != nil {
		return err
	}

	request, err := statisticsRequest(*from, *to, *groupBy)
	if err != nil {
		return err
	}

	root, err := a.statistics.Generate(ctx, request)
	if err != nil {
		return err
	}
	node, err := service.Drill(root, *path)
	if err != nil {
		return err
	}

	if *asCSV {
		return service.RenderCSV(os.Stdout, node)
	}
	return service.RenderTable(os.Stdout, node, service.RenderOptions{MaxDepth: *depth})
}

func exportCommand(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	from, to := periodFlags(fs)
	groupBy := fs.String("group", "type,category", "уровни группировки")
	if err := fs.Parse(args); err != nil {
		return err
	}

	user, err := a.sessions.WhoAmI(ctx)
	if err != nil {
		return err
	}
	request, err := statisticsRequest(*from, *to, *groupBy)
	if err != nil {
		return err
	}

	reports, err := a.reports(ctx)
	if err != nil {
		return err
	}
	result, err := reports.Export(ctx, user.Username, request)
	if err != nil {
		return err
	}

	fmt.Printf("Отчёт загружен: %s\n%s\n", result.Key, result.URL)
	return nil
}

func resetPasswordCommand(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("reset-password", flag.ContinueOnError)
	email := fs.String("email", "", "запросить письмо со ссылкой на сброс")
	token := fs.String("token", "", "токен из письма")
	password := fs.String("password", os.Getenv("FINANCE_PASSWORD"), "новый пароль (или FINANCE_PASSWORD)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *email != "" {
		if err := a.sessions.RequestPasswordReset(ctx, *email); err != nil {
			return err
		}
		fmt.Println("Если адрес зарегистрирован, письмо отправлено")
		return nil
	}

	if *token == "" {
		return fmt.Errorf("нужен -email или -token")
	}
	if err := a.sessions.ResetPassword(ctx, *token, *password); err != nil {
		return err
	}
	fmt.Println("Пароль изменён, войдите заново")
	return nil
}

// periodFlags : по умолчанию текущий месяц
func periodFlags(fs *flag.FlagSet) (*string, *string) {
	now := time.Now()
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	from := fs.String("from", first.Format(dateLayout), "начало периода YYYY-MM-DD")
	to := fs.String("to", first.AddDate(0, 1, -1).Format(dateLayout), "конец периода YYYY-MM-DD")
	return from, to
}

func parsePeriod(from, to string) (time.Time, time.Time, error) {
	start, err := time.Parse(dateLayout, from)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("некорректная дата начала %q: %w", from, err)
	}
	end, err := time.Parse(dateLayout, to)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("некорректная дата конца %q: %w", to, err)
	}
	return start, end, nil
}

func statisticsRequest(from, to, groupBy string) (model.StatisticsRequest, error) {
	start, end, err := parsePeriod(from, to)
	if err != nil {
		return model.StatisticsRequest{}, err
	}
	return model.StatisticsRequest{From: start, To: end, GroupBy: splitList(groupBy)}, nil
}

func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
