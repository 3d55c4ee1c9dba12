package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/jmoralesv/enlace/internal/api"
	"github.com/jmoralesv/enlace/internal/auth"
	"github.com/jmoralesv/enlace/internal/cli"
	"github.com/jmoralesv/enlace/internal/config"
	"github.com/jmoralesv/enlace/internal/dialog"
	"github.com/jmoralesv/enlace/internal/export"
	"github.com/jmoralesv/enlace/internal/logging"
	"github.com/jmoralesv/enlace/internal/model"
	"github.com/jmoralesv/enlace/internal/report"
	"github.com/jmoralesv/enlace/internal/session"
)

// Application holds the shared runtime state: config, logger, the session
// store, and the services built on top of them. One Gate instance backs the
// CLI, the guard and the request transport, so login state is observed
// consistently everywhere.
type Application struct {
	Config  *config.Config
	Logger  logging.Logger
	Session *session.Store

	API     *api.Client
	Gate    *auth.Gate
	Guard   *auth.Guard
	Orch    *Orchestrator
	Reports *report.Aggregator
	Dialog  *dialog.Dialog
}

// NewApplication wires the full client from configuration.
func NewApplication(cfg *config.Config, logger logging.Logger, out io.Writer, in io.Reader) (*Application, error) {
	store, err := session.NewStore(cfg.StorageRoot)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}

	client := api.New(cfg.APIBaseURL, store, cfg.RequestTimeout, logger)
	gate := auth.NewGate(client, store, logger)

	orchCfg := DefaultConfig()
	orchCfg.Application = cfg.Application
	orchCfg.RequestTimeout = cfg.RequestTimeout
	orchCfg.SaveAnalysisResult = cfg.SaveAnalysisResult

	return &Application{
		Config:  cfg,
		Logger:  logger,
		Session: store,
		API:     client,
		Gate:    gate,
		Guard:   auth.NewGuard(gate),
		Orch:    NewOrchestrator(orchCfg, client, store, logger),
		Reports: report.NewAggregator(client, logger),
		Dialog:  dialog.New(out, in),
	}, nil
}

// Run executes one parsed command.
func (a *Application) Run(ctx context.Context, args *cli.Args) error {
	switch args.Command {
	case cli.CmdLogin:
		return a.runLogin(ctx, args)
	case cli.CmdLogout:
		return a.runLogout()
	case cli.CmdRegister:
		return a.runRegister(ctx, args)
	case cli.CmdAnalyze:
		return a.runAnalyze(ctx, args)
	case cli.CmdReport:
		return a.runReport(ctx, args)
	case cli.CmdExport:
		return a.runExport(ctx, args)
	default:
		return fmt.Errorf("unknown command %q", args.Command)
	}
}

func (a *Application) runLogin(ctx context.Context, args *cli.Args) error {
	sess, err := a.Gate.Login(ctx, args.Username, args.Password)
	if err != nil {
		a.reportAuthError(err)
		return err
	}
	a.Dialog.Success(fmt.Sprintf("Sesión iniciada como %s (%s)", sess.Username, sess.Role))
	return nil
}

func (a *Application) runLogout() error {
	if err := a.Gate.Logout(); err != nil {
		a.Dialog.Error("No se pudo cerrar la sesión: " + err.Error())
		return err
	}
	a.Dialog.Success("Sesión cerrada")
	return nil
}

func (a *Application) runRegister(ctx context.Context, args *cli.Args) error {
	err := a.Gate.Register(ctx, model.User{
		Username:  args.Username,
		Password:  args.Password,
		FirstName: args.FirstName,
		LastName:  args.LastName,
	})
	if err != nil {
		a.reportAuthError(err)
		return err
	}
	a.Dialog.Success("Cuenta creada. Ya puedes iniciar sesión con `enlace login`.")
	return nil
}

func (a *Application) runAnalyze(ctx context.Context, args *cli.Args) error {
	a.Orch.StateHook = func(s State) {
		switch s {
		case StateSavingLink:
			a.Dialog.Info("Guardando enlace...")
		case StateAnalyzing:
			a.Dialog.Info("Analizando URL...")
		}
	}

	res, err := a.Orch.Submit(ctx, args.URL, args.Message)
	if err != nil {
		a.reportSubmitError(err)
		return err
	}

	if res.IsPhishing {
		a.Dialog.Error(fmt.Sprintf("PHISHING detectado en %s", res.URL))
	} else {
		a.Dialog.Success(fmt.Sprintf("%s parece seguro", res.URL))
	}
	a.Dialog.RiskBar(res.RiskLevel, res.RiskPercent)
	if res.Message != "" {
		a.Dialog.Info(res.Message)
	}
	a.Dialog.List("Detalles:", res.Details)
	a.Dialog.List("Recomendaciones:", res.Recommendations)
	a.Dialog.Info(fmt.Sprintf("Reporte disponible con `enlace report -id %d`", res.AnalysisID))
	return nil
}

func (a *Application) runReport(ctx context.Context, args *cli.Args) error {
	if err := a.requireAuth("report"); err != nil {
		return err
	}

	if err := a.loadReport(ctx, args); err != nil {
		a.reportBackendError(err, "No se pudo cargar el reporte")
		return err
	}

	if args.DeleteID != 0 {
		if err := a.deleteAnalysis(ctx, args.DeleteID); err != nil {
			return err
		}
	}

	stats := a.Reports.Stats()
	a.Dialog.Info(fmt.Sprintf("Total: %d | Phishing: %d | Seguros: %d | %%Phishing: %d%%",
		stats.Total, stats.PhishingCount, stats.SafeCount, stats.PhishingPercent))

	a.Reports.SetPage(args.Page)
	for _, row := range a.Reports.PageItems() {
		verdict := row.Verdict
		if verdict == "" {
			verdict = model.VerdictSafe
		}
		a.Dialog.Info(fmt.Sprintf("#%d  %-8s  %3d%%  %s  %s",
			row.ID, verdict, model.RiskPercent(row.Probability), row.Timestamp, row.URL))
	}
	if pages := a.Reports.PageNumbers(); len(pages) > 1 {
		a.Dialog.Info(fmt.Sprintf("Página %d de %d %v", a.Reports.Page(), a.Reports.TotalPages(), pages))
	}
	return nil
}

func (a *Application) runExport(ctx context.Context, args *cli.Args) error {
	if err := a.requireAuth("export"); err != nil {
		return err
	}

	exporter, err := export.NewExporter(args.OutDir, a.Logger)
	if err != nil {
		a.Dialog.Error(err.Error())
		return err
	}

	var path string
	if args.History {
		if err := a.Reports.LoadByUser(ctx); err != nil {
			a.reportBackendError(err, "No se pudo cargar el historial")
			return err
		}
		path, err = exporter.HistoryReport(a.Reports.History(), a.Reports.Stats())
	} else {
		if err := a.Reports.LoadByID(ctx, args.AnalysisID); err != nil {
			a.reportBackendError(err, "No se pudo cargar el análisis")
			return err
		}
		path, err = exporter.AnalysisReport(a.Reports.Current())
	}
	if err != nil {
		a.Dialog.Error("No se pudo generar el PDF: " + err.Error())
		return err
	}

	a.Dialog.Success("Reporte exportado: " + path)
	return nil
}

// deleteAnalysis confirms and removes one row, then shows the reloaded view.
func (a *Application) deleteAnalysis(ctx context.Context, id int64) error {
	target := model.Analysis{ID: id}
	for _, row := range a.Reports.History() {
		if row.ID == id {
			target = row
			break
		}
	}

	deleted, err := a.Reports.Delete(ctx, target, func(url string) bool {
		return a.Dialog.Confirm(fmt.Sprintf("¿Estás seguro de eliminar el análisis de %s?", url))
	})
	if err != nil {
		a.reportBackendError(err, "No se pudo eliminar el análisis")
		return err
	}
	if !deleted {
		a.Dialog.Info("Eliminación cancelada")
		return nil
	}
	a.Dialog.Success(fmt.Sprintf("Análisis %d eliminado", id))
	return nil
}

func (a *Application) loadReport(ctx context.Context, args *cli.Args) error {
	switch {
	case args.AnalysisID != 0:
		return a.Reports.LoadByID(ctx, args.AnalysisID)
	case args.LinkID != 0:
		return a.Reports.LoadByLink(ctx, args.LinkID)
	default:
		return a.Reports.LoadByUser(ctx)
	}
}

// requireAuth enforces the route guard for protected commands.
func (a *Application) requireAuth(dest string) error {
	if d := a.Guard.Allow(dest); !d.Allowed {
		a.Dialog.Warning("Debes iniciar sesión para acceder a " + d.ReturnTo)
		a.Dialog.Info("Usa `enlace login -user <usuario> -password <clave>` y vuelve a intentarlo.")
		return errors.New("authentication required")
	}
	return nil
}

func (a *Application) reportAuthError(err error) {
	switch {
	case errors.Is(err, auth.ErrUnreachable):
		a.Dialog.Error("No se pudo conectar con el servidor")
		a.Dialog.ConnectivityHint(a.Config.APIBaseURL)
	case errors.Is(err, auth.ErrUnauthorized):
		a.Dialog.Error("Usuario o contraseña incorrectos")
	case errors.Is(err, auth.ErrUsernameTaken):
		a.Dialog.Warning("El nombre de usuario ya está registrado")
	default:
		a.Dialog.Error(err.Error())
	}
}

func (a *Application) reportSubmitError(err error) {
	var vErr *ValidationError
	var aErr *AuthRequiredError
	var sErr *SubmitError
	switch {
	case errors.Is(err, ErrBusy):
		a.Dialog.Warning("Ya hay un análisis en curso")
	case errors.As(err, &vErr):
		a.Dialog.Error("URL inválida: " + vErr.Input)
	case errors.As(err, &aErr):
		a.Dialog.Warning("Debes iniciar sesión para guardar y analizar enlaces")
		a.Dialog.Info("Tu URL se conserva: " + aErr.URL)
	case errors.As(err, &sErr):
		a.Dialog.Error(sErr.Message)
		if sErr.Unreachable() {
			a.Dialog.ConnectivityHint(a.Config.APIBaseURL)
		}
	default:
		a.Dialog.Error(err.Error())
	}
}

func (a *Application) reportBackendError(err error, fallback string) {
	if msg := api.MessageOf(err); msg != "" {
		a.Dialog.Error(msg)
		return
	}
	var apiErr *api.Error
	if errors.As(err, &apiErr) && apiErr.Unreachable() {
		a.Dialog.Error(fallback)
		a.Dialog.ConnectivityHint(a.Config.APIBaseURL)
		return
	}
	a.Dialog.Error(fallback)
}
