package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/maynagashev/idealvisual/client/internal/api"
	"github.com/maynagashev/idealvisual/client/internal/config"
	"github.com/maynagashev/idealvisual/client/internal/diag"
	"github.com/maynagashev/idealvisual/client/internal/session"
	"github.com/maynagashev/idealvisual/models"
)

// app хранит зависимости команд. Заполняется перед выполнением команды.
type app struct {
	cfg     config.Config
	out     io.Writer
	dotEnv  string
	account *api.Async
	store   *session.Store
}

// newRootCmd собирает дерево команд CLI.
func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{out: out, dotEnv: dotEnvFile}

	root := &cobra.Command{
		Use:           "idealvisual",
		Short:         "Клиент учетных записей IdealVisual",
		Version:       fmt.Sprintf("%s (build %s, commit %s)", version, buildDate, commitHash),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	a.cfg.BindFlags(root.PersistentFlags())

	root.AddCommand(
		a.registerCmd(),
		a.loginCmd(),
		a.updateCmd(),
		a.logoutCmd(),
		a.whoamiCmd(),
	)
	return root
}

// setup читает настройки и создает хранилище сессии, а при withClient и клиент.
func (a *app) setup(withClient bool) error {
	if err := config.LoadDotEnv(a.dotEnv); err != nil {
		return err
	}
	if err := a.cfg.Resolve(); err != nil {
		return err
	}
	a.store = session.NewStore(a.cfg.SessionFile)
	if !withClient {
		return nil
	}

	if err := a.cfg.Validate(); err != nil {
		return err
	}
	endpoints, err := a.cfg.Endpoints()
	if err != nil {
		return err
	}
	slog.Debug("Эндпоинты клиента", "account", endpoints.AccountURL, "session", endpoints.SessionURL)

	client := api.NewHTTPClient(endpoints,
		api.WithDoer(&http.Client{Timeout: a.cfg.Timeout}),
		api.WithLogger(diag.NewSlog(slog.Default())),
	)
	a.account = api.NewAsync(client)
	return nil
}

func (a *app) registerCmd() *cobra.Command {
	var user models.User
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Создать учетную запись",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.setup(true); err != nil {
				return err
			}
			ctx := cmd.Context()
			created, err := awaitUser(ctx, func(done api.UserCompletion) {
				a.account.Create(ctx, user, done)
			})
			if err != nil {
				return a.report("регистрация", err)
			}
			if err = a.remember(ctx, created); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Учетная запись создана: %s (id %d)\n", created.Username, created.ID)
			return nil
		},
	}
	userFlags(cmd, &user, true)
	return cmd
}

func (a *app) loginCmd() *cobra.Command {
	var user models.User
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Войти в учетную запись",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.setup(true); err != nil {
				return err
			}
			ctx := cmd.Context()
			loggedIn, err := awaitUser(ctx, func(done api.UserCompletion) {
				a.account.Login(ctx, user, done)
			})
			if err != nil {
				return a.report("вход", err)
			}
			if err = a.remember(ctx, loggedIn); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Вход выполнен: %s\n", loggedIn.Username)
			return nil
		},
	}
	cmd.Flags().StringVar(&user.Username, "username", "", "Имя пользователя")
	cmd.Flags().StringVar(&user.Password, "password", "", "Пароль")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func (a *app) updateCmd() *cobra.Command {
	var user models.User
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Изменить данные учетной записи",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.setup(true); err != nil {
				return err
			}
			ctx := cmd.Context()
			sess, err := a.store.Load(ctx)
			if err != nil {
				return err
			}

			updated, err := awaitUser(ctx, func(done api.UserCompletion) {
				a.account.Update(ctx, sess.Token, user, done)
			})
			if err != nil {
				if errors.Is(err, api.ErrUnauthorized) {
					// Токен больше не действует, сессию хранить незачем
					if clearErr := a.store.Clear(ctx); clearErr != nil {
						slog.Warn("Не удалось удалить сессию", "error", clearErr)
					}
				}
				return a.report("изменение", err)
			}
			if err = a.store.Save(ctx, sess.Token, *updated); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Данные обновлены: %s <%s>\n", updated.Username, updated.Email)
			return nil
		},
	}
	userFlags(cmd, &user, false)
	return cmd
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Выйти из учетной записи",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.setup(true); err != nil {
				return err
			}
			ctx := cmd.Context()
			sess, err := a.store.Load(ctx)
			if err != nil {
				return err
			}

			if err = awaitErr(ctx, func(done api.Completion) {
				a.account.Logout(ctx, sess.Token, done)
			}); err != nil {
				return a.report("выход", err)
			}
			if err = a.store.Clear(ctx); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Выход выполнен")
			return nil
		},
	}
}

func (a *app) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Показать сохраненную сессию",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.setup(false); err != nil {
				return err
			}
			sess, err := a.store.Load(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s <%s> (id %d)\n", sess.User.Username, sess.User.Email, sess.User.ID)
			if sess.User.Ava != "" {
				fmt.Fprintf(a.out, "Аватар: %s\n", sess.User.Ava)
			}
			return nil
		},
	}
}

// remember сохраняет токен, выданный сервером.
func (a *app) remember(ctx context.Context, user *models.User) error {
	if user.Token == "" {
		slog.Warn("Сервер не вернул токен", "username", user.Username)
		return nil
	}
	return a.store.Save(ctx, user.Token, *user)
}

// report печатает понятное описание ошибки и возвращает ее для кода выхода.
func (a *app) report(operation string, err error) error {
	fmt.Fprintln(a.out, describeError(err))
	return fmt.Errorf("%s: %w", operation, err)
}

func userFlags(cmd *cobra.Command, user *models.User, required bool) {
	cmd.Flags().StringVar(&user.Username, "username", "", "Имя пользователя")
	cmd.Flags().StringVar(&user.Email, "email", "", "Электронная почта")
	cmd.Flags().StringVar(&user.Password, "password", "", "Пароль")
	cmd.Flags().StringVar(&user.Ava, "ava", "", "Ссылка на аватар")
	if required {
		_ = cmd.MarkFlagRequired("username")
		_ = cmd.MarkFlagRequired("email")
		_ = cmd.MarkFlagRequired("password")
	}
}

// describeError переводит ошибку клиента в текст для пользователя.
func describeError(err error) string {
	if fields, ok := api.FieldErrorsOf(err); ok {
		var b strings.Builder
		b.WriteString("Проверьте поля:")
		for _, line := range strings.Split(formatFieldErrors(fields), "\n") {
			b.WriteString("\n  ")
			b.WriteString(line)
		}
		return b.String()
	}

	switch api.KindOf(err) {
	case api.KindNoConnection:
		return "Нет подключения к сети. Повторите попытку позже."
	case api.KindForbidden:
		return "Неверное имя пользователя или пароль."
	case api.KindUnauthorized:
		return "Сессия истекла. Выполните вход заново."
	case api.KindNotFound:
		return "Учетная запись не найдена."
	case api.KindNoData:
		return "Сервер не вернул данные."
	default:
		return "Ошибка: " + err.Error()
	}
}

func formatFieldErrors(fields models.FieldErrors) string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	lines := make([]string, 0, len(names))
	for _, name := range names {
		lines = append(lines, name+": "+strings.Join(fields[name], ", "))
	}
	return strings.Join(lines, "\n")
}

type userResult struct {
	user *models.User
	err  error
}

// awaitUser запускает асинхронную операцию и ждет ее completion в текущей горутине.
func awaitUser(ctx context.Context, start func(done api.UserCompletion)) (*models.User, error) {
	results := make(chan userResult, 1)
	start(func(user *models.User, err error) {
		results <- userResult{user: user, err: err}
	})
	select {
	case res := <-results:
		return res.user, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func awaitErr(ctx context.Context, start func(done api.Completion)) error {
	results := make(chan error, 1)
	start(func(err error) {
		results <- err
	})
	select {
	case err := <-results:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
