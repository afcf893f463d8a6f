package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"courtshadows/internal/server"
	"courtshadows/internal/server/auth"
	"courtshadows/internal/server/store"
)

const tokenTTL = 72 * time.Hour

func main() {
	root := &cobra.Command{
		Use:           "courtshadows",
		Short:         "宮廷暗影：隱藏身份推理遊戲伺服器",
		RunE:          run,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.Flags()
	flags.String("addr", ":3000", "HTTP 監聽位址")
	flags.String("data", "courtshadows.db", "sqlite 資料庫路徑")
	flags.String("web", "public", "靜態前端目錄（空字串停用）")
	flags.String("jwt-secret", "", "JWT 簽章密鑰（必填）")
	flags.String("log-level", "info", "日誌等級 (trace/debug/info/warn/error)")

	viper.SetEnvPrefix("COURT")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	viper.BindPFlags(flags)

	if err := root.Execute(); err != nil {
		fallbackLog := zerolog.New(os.Stderr)
		fallbackLog.Error().Err(err).Msg("伺服器結束")
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	level, err := zerolog.ParseLevel(viper.GetString("log-level"))
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).
		With().Timestamp().Logger()

	secret := viper.GetString("jwt-secret")
	if secret == "" {
		return errors.New("必須提供 --jwt-secret 或環境變數 COURT_JWT_SECRET")
	}

	st, err := store.Open(viper.GetString("data"))
	if err != nil {
		return err
	}
	defer st.Close()

	srv := server.New(st, auth.NewManager(secret, tokenTTL), log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go srv.Registry().RunCleanup(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/register", srv.HandleRegister)
	mux.HandleFunc("/api/login", srv.HandleLogin)
	mux.HandleFunc("/api/profile", srv.HandleProfile)
	mux.HandleFunc("/api/stats", srv.HandleStats)
	mux.HandleFunc("/ws", srv.HandleWS)
	if web := viper.GetString("web"); web != "" {
		mux.Handle("/", http.FileServer(http.Dir(web)))
	}

	httpServer := &http.Server{
		Addr:    viper.GetString("addr"),
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		log.Info().Msg("收到結束訊號，關閉伺服器")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", httpServer.Addr).Msg("宮廷暗影伺服器啟動")
	if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
