package engine

type ApplicationConfig struct {
	// The application name handed to the renderer.
	Name string
	// Path of the TOML configuration. A missing file means defaults.
	ConfigPath string
	// Optional .env file applied on top of the configuration.
	EnvPath string
	// Directory indexed and watched for source images. Empty disables watching.
	AssetsDir string
}
