package cli

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"envoyauth/internal/app"
	"envoyauth/internal/auth"
	"envoyauth/internal/config"
	"envoyauth/internal/domain"
	"envoyauth/internal/logging"
)

// Command flag variables
var (
	host          string
	serial        string
	cloudUsername string
	localUsername string
	rawToken      string
	method        string
)

// tokenCmd represents the token command
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Obtain a bearer token from the Enlighten cloud service",
	Long: `Obtain a bearer token for the configured Envoy from the Enlighten cloud
service and print it to stdout. The token is not stored anywhere.`,
	RunE: runToken,
}

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify credentials against the local Envoy",
	Long: `Run the full authentication setup against the local Envoy. For the token
method this verifies the bearer token via /auth/check_jwt and reports the
session cookies; for the legacy method it reports the digest credential
that would be applied.`,
	RunE: runCheck,
}

// expiresCmd represents the expires command
var expiresCmd = &cobra.Command{
	Use:   "expires",
	Short: "Print a token's expiry time",
	Long: `Decode the bearer token's expiry claim and print it. The token signature
is not verified; the Envoy does that on every request. Pass a token with
--token, or omit it to obtain a fresh one from the cloud.`,
	RunE: runExpires,
}

// configCmd groups configuration subcommands
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the envoy-auth configuration file",
}

// configInitCmd represents the config init command
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter configuration file",
	RunE:  runConfigInit,
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("envoy-auth version %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built: %s\n", date)
		fmt.Printf("  built by: %s\n", builtBy)
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(expiresCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
	configCmd.AddCommand(configInitCmd)

	for _, cmd := range []*cobra.Command{tokenCmd, checkCmd, expiresCmd} {
		cmd.Flags().StringVar(&host, "host", "", "Envoy host, without scheme")
		cmd.Flags().StringVar(&serial, "serial", "", "Envoy serial number")
		cmd.Flags().StringVar(&cloudUsername, "username", "", "Enlighten account email")
	}
	checkCmd.Flags().StringVar(&rawToken, "token", "", "pre-obtained bearer token")
	checkCmd.Flags().StringVar(&method, "method", "", "authentication method: "+config.SupportedMethodsString())
	checkCmd.Flags().StringVar(&localUsername, "local-username", "", "local device username (legacy method)")
	expiresCmd.Flags().StringVar(&rawToken, "token", "", "bearer token to decode")

	configInitCmd.Flags().StringVar(&host, "host", "", "Envoy host, without scheme")
	configInitCmd.Flags().StringVar(&serial, "serial", "", "Envoy serial number")
	configInitCmd.Flags().StringVar(&cloudUsername, "username", "", "Enlighten account email")
}

// newApp wires dependencies using the global flags.
func newApp(cmd *cobra.Command) (*app.App, error) {
	path := cfgFile
	if path == "" {
		defaultPath, err := app.DefaultConfigPath()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve config path: %w", err)
		}
		path = defaultPath
	}

	level := logging.LevelInfo
	if verbose {
		level = logging.LevelDebug
	}

	return app.New(cmd.Context(), app.Options{
		ConfigPath: path,
		LogLevel:   level,
		LogFormat:  "text",
		Insecure:   insecure,
	})
}

// resolve picks the first non-empty value: flag, config file, environment.
func resolve(flagValue, configValue, viperKey string) string {
	if flagValue != "" {
		return flagValue
	}
	if configValue != "" {
		return configValue
	}
	return viper.GetString(viperKey)
}

// buildTokenAuth constructs a token authenticator from flags and config.
// When token is empty the cloud credentials are resolved, prompting for the
// password if needed.
func buildTokenAuth(cmd *cobra.Command, a *app.App, token string) (*auth.TokenAuth, error) {
	cfg := auth.TokenConfig{
		Host:        resolve(host, a.Config.Host, "host"),
		EnvoySerial: resolve(serial, a.Config.Serial, "serial"),
		Token:       token,
	}

	if token == "" {
		cfg.CloudUsername = resolve(cloudUsername, a.Config.CloudUsername, "cloudusername")
		if cfg.CloudUsername == "" {
			return nil, errors.New("an Enlighten account email is required (--username, config file, or ENVOY_AUTH_CLOUDUSERNAME)")
		}

		password, err := a.PasswordReader.ReadPassword(cmd.Context(),
			fmt.Sprintf("Enlighten password for %s: ", cfg.CloudUsername))
		if err != nil {
			return nil, fmt.Errorf("failed to read cloud password: %w", err)
		}
		cfg.CloudPassword = password
	}

	return auth.NewTokenAuth(cfg, a.Logger.Logger), nil
}

// runToken handles the token command execution
func runToken(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	authenticator, err := buildTokenAuth(cmd, a, "")
	if err != nil {
		return err
	}

	token, err := authenticator.ObtainToken(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Println(token)
	return nil
}

// runCheck handles the check command execution
func runCheck(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	resolvedHost := resolve(host, a.Config.Host, "host")
	if resolvedHost == "" {
		return errors.New("an Envoy host is required (--host, config file, or ENVOY_AUTH_HOST)")
	}

	resolvedMethod := resolve(method, a.Config.Method, "method")
	if resolvedMethod == "" {
		resolvedMethod = "token"
	}
	if !config.IsValidMethod(resolvedMethod) {
		return fmt.Errorf("unsupported authentication method %q, expected one of: %s",
			resolvedMethod, config.SupportedMethodsString())
	}

	authenticator, err := buildAuthenticator(cmd, a, resolvedMethod, resolvedHost)
	if err != nil {
		return err
	}

	if err := authenticator.Setup(cmd.Context(), a.Device); err != nil {
		return err
	}

	// The transport applies digest credentials; bearer tokens travel as
	// headers on each request.
	if cred := authenticator.Auth(); cred != nil {
		a.Device.SetDigestAuth(cred)
	}

	switch impl := authenticator.(type) {
	case *auth.TokenAuth:
		cookieNames := make([]string, 0, len(impl.Cookies()))
		for name := range impl.Cookies() {
			cookieNames = append(cookieNames, name)
		}
		sort.Strings(cookieNames)

		fmt.Printf("Token verified against %s\n", resolvedHost)
		fmt.Printf("  endpoint base: %s\n", authenticator.EndpointURL("/"))
		fmt.Printf("  session cookies: %v\n", cookieNames)
	case *auth.LegacyAuth:
		if cred := impl.Auth(); cred != nil {
			fmt.Printf("Legacy digest authentication configured for %s as %s\n", resolvedHost, cred.Username)
		} else {
			fmt.Printf("Legacy authentication for %s: no credentials, requests go unauthenticated\n", resolvedHost)
		}
		fmt.Printf("  endpoint base: %s\n", authenticator.EndpointURL("/"))
	}
	return nil
}

// buildAuthenticator constructs the authenticator for the selected method.
func buildAuthenticator(
	cmd *cobra.Command, a *app.App, resolvedMethod, resolvedHost string,
) (domain.Authenticator, error) {
	if resolvedMethod == "legacy" {
		username := resolve(localUsername, a.Config.LocalUsername, "localusername")

		password := ""
		if username != "" {
			read, err := a.PasswordReader.ReadPassword(cmd.Context(),
				fmt.Sprintf("Local password for %s: ", username))
			if err != nil {
				return nil, fmt.Errorf("failed to read local password: %w", err)
			}
			password = read
		}

		return auth.NewLegacyAuth(resolvedHost, username, password), nil
	}

	tokenAuth, err := buildTokenAuth(cmd, a, rawToken)
	if err != nil {
		return nil, err
	}
	return tokenAuth, nil
}

// runExpires handles the expires command execution
func runExpires(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	authenticator, err := buildTokenAuth(cmd, a, rawToken)
	if err != nil {
		return err
	}

	if rawToken == "" {
		if err := authenticator.Refresh(cmd.Context()); err != nil {
			return err
		}
	}

	ts, err := authenticator.ExpireTimestamp()
	if err != nil {
		return err
	}

	expiry := time.Unix(ts, 0)
	fmt.Printf("Token expires %s (%s from now)\n",
		expiry.Format(time.RFC3339),
		time.Until(expiry).Round(time.Second))
	return nil
}

// runConfigInit handles the config init command execution
func runConfigInit(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	cfg := &config.Config{
		Host:          host,
		Method:        "token",
		Serial:        serial,
		CloudUsername: cloudUsername,
	}
	if cfg.Host == "" {
		cfg.Host = "envoy.local"
	}

	if err := a.ConfigManager.Save(cfg); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Println("Wrote configuration file")
	return nil
}
