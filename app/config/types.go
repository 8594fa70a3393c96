package config

// Config represents the complete backup configuration
type Config struct {
	OutputDir string   `yaml:"output_dir"`
	Auth      Auth     `yaml:"auth"`
	Sources   []Source `yaml:"sources"`
	Hugo      Hugo     `yaml:"hugo"`
}

// Auth contains paths to files holding opaque auth material
type Auth struct {
	SponsrCookieFile string `yaml:"sponsr_cookie_file"`
	BoostyCookieFile string `yaml:"boosty_cookie_file"`
	BoostyAuthFile   string `yaml:"boosty_auth_file"`
}

// Source describes one author to back up
type Source struct {
	Platform       string   `yaml:"platform"`
	Author         string   `yaml:"author"`
	DownloadAssets bool     `yaml:"download_assets"`
	AssetTypes     []string `yaml:"asset_types"`
	DisplayName    string   `yaml:"display_name"`
}

// Hugo contains settings emitted into the generated site configuration
type Hugo struct {
	BaseURL      string `yaml:"base_url"`
	Title        string `yaml:"title"`
	LanguageCode string `yaml:"language_code"`
	DefaultTheme string `yaml:"default_theme"`
}
