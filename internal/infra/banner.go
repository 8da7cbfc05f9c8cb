package infra

import (
	"fmt"
)

// ANSI color codes
const (
	ColorReset = "\033[0m"
	ColorGreen = "\033[32m"
	ColorCyan  = "\033[36m"
)

// PrintBanner displays the startup banner.
func PrintBanner(cfg *Config) {
	fmt.Println()
	fmt.Printf("%s#####################################################%s\n", ColorGreen, ColorReset)
	fmt.Printf("%s#                                                   #%s\n", ColorGreen, ColorReset)
	fmt.Printf("%s#           ZINGERS deli trading terminal           #%s\n", ColorGreen, ColorReset)
	fmt.Printf("%s#                                                   #%s\n", ColorGreen, ColorReset)
	fmt.Printf("%s#   VERSION: %-37s #%s\n", ColorGreen, cfg.App.Version, ColorReset)
	fmt.Printf("%s#   VENUE:   %-37s #%s\n", ColorGreen, cfg.Server.BaseURL, ColorReset)
	fmt.Printf("%s#####################################################%s\n", ColorGreen, ColorReset)
	fmt.Println()
}
