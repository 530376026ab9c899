package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Config agrupa a configuração da aplicação (leitura via Viper de env e opcionalmente arquivo).
type Config struct {
	App   AppConfig
	JWT   JWTConfig
	HTTP  HTTPConfig
	Cert  CertConfig
	Sefin SefinConfig
}

// AppConfig configuração geral da aplicação.
type AppConfig struct {
	Env      string // development, staging, production
	Name     string
	LogLevel string // trace, debug, info, warn, error
}

// CertConfig certificado digital do emitente (A1).
type CertConfig struct {
	Path     string // caminho do .p12/.pfx ou do certificado .pem
	KeyPath  string // caminho da chave privada .pem (quando Path é só o certificado)
	Password string // senha do .p12/.pfx
}

// SefinConfig acesso ao portal nacional (Sefin Nacional / ADN).
type SefinConfig struct {
	Ambiente         string // "1" = Produção, "2" = Homologação
	VerAplic         string // versão do aplicativo emissor declarada na DPS
	URL              string // endpoint de emissão/consulta/eventos
	DANFSeURL        string // endpoint de download do DANFSe
	TimeoutSeconds   int    // timeout por requisição
	Tentativas       int    // tentativas para erros transitórios (rede, 5xx)
	DANFSeTentativas int    // tentativas de download do DANFSe após emissão
	DANFSeIntervalo  int    // segundos entre tentativas de DANFSe
}

// JWTConfig configuração de JWT da API.
type JWTConfig struct {
	Secret     string
	Expiration int // minutos
	Issuer     string
	APIUser    string // credencial estática para emissão de token
	APISenha   string
}

// HTTPConfig configuração do servidor HTTP.
type HTTPConfig struct {
	Host string
	Port int
}

// Addr devolve o endereço de escuta (host:port).
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Load lê a configuração de variáveis de ambiente (e opcionalmente de arquivo).
// As env vars têm prioridade. Nomes esperados: APP_ENV, HTTP_PORT, JWT_SECRET, SEFIN_URL, etc.
func Load() (*Config, error) {
	v := viper.New()

	// Opcional: arquivo de configuração (.env ou config.env)
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // ignoramos erro se não existe

	// Também tenta config.env
	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	_ = v.ReadInConfig() // ignoramos erro se não existe

	// Bind de variáveis de ambiente (Viper as lê automaticamente com AutomaticEnv ativo)
	v.AutomaticEnv()
	// Permite usar APP_ENV, HTTP_PORT, JWT_SECRET, etc.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{
		App: AppConfig{
			Env:      getString(v, "APP_ENV", "development"),
			Name:     getString(v, "APP_NAME", "nfse-nacional-api"),
			LogLevel: getString(v, "LOG_LEVEL", "info"),
		},
		JWT: JWTConfig{
			Secret:     getString(v, "JWT_SECRET", ""),
			Expiration: getInt(v, "JWT_EXPIRATION_MINUTES", 60),
			Issuer:     getString(v, "JWT_ISSUER", "nfse-nacional-api"),
			APIUser:    getString(v, "API_USER", ""),
			APISenha:   getString(v, "API_PASSWORD", ""),
		},
		HTTP: HTTPConfig{
			Host: getString(v, "HTTP_HOST", "0.0.0.0"),
			Port: getInt(v, "HTTP_PORT", 8080),
		},
		Cert: CertConfig{
			Path:     getString(v, "CERT_PATH", ""),
			KeyPath:  getString(v, "CERT_KEY_PATH", ""),
			Password: getString(v, "CERT_PASSWORD", ""),
		},
		Sefin: SefinConfig{
			Ambiente:         getString(v, "SEFIN_AMBIENTE", "1"),
			VerAplic:         getString(v, "SEFIN_VERAPLIC", ""),
			URL:              getString(v, "SEFIN_URL", "https://sefin.nfse.gov.br/SefinNacional/nfse"),
			DANFSeURL:        getString(v, "SEFIN_DANFSE_URL", "https://adn.nfse.gov.br/danfse"),
			TimeoutSeconds:   getInt(v, "SEFIN_TIMEOUT_SECONDS", 30),
			Tentativas:       getInt(v, "SEFIN_TENTATIVAS", 3),
			DANFSeTentativas: getInt(v, "SEFIN_DANFSE_TENTATIVAS", 3),
			DANFSeIntervalo:  getInt(v, "SEFIN_DANFSE_INTERVALO_SEGUNDOS", 2),
		},
	}

	return cfg, nil
}

func getString(v *viper.Viper, key, def string) string {
	if v.IsSet(key) {
		return v.GetString(key)
	}
	return def
}

func getInt(v *viper.Viper, key string, def int) int {
	if v.IsSet(key) {
		switch v.Get(key).(type) {
		case int:
			return v.GetInt(key)
		case string:
			n, _ := strconv.Atoi(v.GetString(key))
			return n
		default:
			return v.GetInt(key)
		}
	}
	return def
}
