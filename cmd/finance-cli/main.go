package main

import (
	"context"
	"errors"
	"finance-tracker-client/config"
	"finance-tracker-client/internal/model"
	"finance-tracker-client/internal/util"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

const usage = `finance-cli - клиент учёта финансов

Использование:
  finance-cli [-config config.yaml] <команда> [флаги]

Команды:
  register        регистрация
  login           вход
  verify          подтверждение e-mail кодом из письма
  logout          выход
  whoami          текущий пользователь
  entries         записи за период
  add-entry       новая запись
  tags            теги (список, -add, -delete)
  categories      категории (список, -add)
  stats           статистика за период
  export          выгрузка статистики в S3
  reset-password  сброс пароля (-email, затем -token и -password)
`

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "путь к файлу конфигурации")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		return 2
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ошибка загрузки конфигурации: %v\n", err)
		return 1
	}

	logger := util.NewLogger(os.Stderr, cfg.Logging.Env, cfg.Logging.Level)
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	application, err := newApp(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ошибка инициализации: %v\n", err)
		return 1
	}
	defer application.close()

	unsubscribe := application.store.Subscribe(func(user *model.AuthenticatedUser) {
		if user == nil {
			fmt.Fprintln(os.Stderr, "Сессия завершена. Выполните finance-cli login.")
		}
	})
	defer unsubscribe()

	command, ok := commands[flag.Arg(0)]
	if !ok {
		fmt.Fprintf(os.Stderr, "неизвестная команда %q\n\n", flag.Arg(0))
		flag.Usage()
		return 2
	}

	if err := command(ctx, application, flag.Args()[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "ошибка: %v\n", err)
		return 1
	}
	return 0
}
