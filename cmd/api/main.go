package main

import (
	"context"
	"crypto/tls"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/tecnofiscal/nfse-nacional-api/internal/application/emissao"
	"github.com/tecnofiscal/nfse-nacional-api/internal/infrastructure/sefin"
	"github.com/tecnofiscal/nfse-nacional-api/internal/infrastructure/sefin/signer"
	httpRouter "github.com/tecnofiscal/nfse-nacional-api/internal/interfaces/http"
	"github.com/tecnofiscal/nfse-nacional-api/pkg/config"
	"github.com/tecnofiscal/nfse-nacional-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("carregar configuração: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("ambiente_sefin", cfg.Sefin.Ambiente).
		Msg("iniciando aplicação")

	cert, err := carregarCertificado(cfg.Cert)
	if err != nil {
		log.Fatal().Err(err).Msg("certificado do emitente")
	}
	if len(cert.Certificate) == 0 {
		log.Warn().Msg("nenhum certificado configurado; assinatura e mTLS indisponíveis")
	}

	portal := sefin.NewClient(sefin.ClientConfig{
		BaseURL:     cfg.Sefin.URL,
		DanfseURL:   cfg.Sefin.DANFSeURL,
		Timeout:     time.Duration(cfg.Sefin.TimeoutSeconds) * time.Second,
		Tentativas:  cfg.Sefin.Tentativas,
		Certificado: cert,
	}, log)

	emissor := emissao.NewEmissorNFSe(
		sefin.NewXMLBuilderService(),
		signer.NewDigitalSignatureService(),
		portal,
		cert,
		emissao.Config{
			Ambiente:         cfg.Sefin.Ambiente,
			VerAplic:         cfg.Sefin.VerAplic,
			DANFSeTentativas: cfg.Sefin.DANFSeTentativas,
			DANFSeIntervalo:  time.Duration(cfg.Sefin.DANFSeIntervalo) * time.Second,
		},
		log,
	)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 30,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Emissor NFS-e Nacional",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Emissor: emissor,
		JWT:     cfg.JWT,
		Log:     log,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("sinal de desligamento recebido, encerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("encerramento do servidor")
	}

	log.Info().Msg("servidor encerrado")
}

// carregarCertificado decide o formato pelo sufixo do arquivo: .p12/.pfx abre
// o PKCS#12 com a senha; qualquer outro caminho é tratado como PEM. Caminho
// vazio devolve certificado zero (operação sem assinatura, só consultas).
func carregarCertificado(cfg config.CertConfig) (tls.Certificate, error) {
	if cfg.Path == "" {
		return tls.Certificate{}, nil
	}
	ext := strings.ToLower(filepath.Ext(cfg.Path))
	if ext == ".p12" || ext == ".pfx" {
		return signer.LoadFromP12(cfg.Path, cfg.Password)
	}
	return signer.LoadFromPEM(cfg.Path, cfg.KeyPath)
}
