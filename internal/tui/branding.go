package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/pders01/reviewq/internal/config"
)

const AppName = "reviewq"

// LogoLines is the block-letter wordmark.
var LogoLines = []string{
	"█▀█ █▀▀ █ █ █ █▀▀ █ █ █ █▀█",
	"█▀▄ ██▄ ▀▄▀ █ ██▄ ▀▄▀▄▀ ▀▀█",
}

const CompactLogo = `reviewq ›`

var BannerColors = []lipgloss.Color{
	lipgloss.Color("#FF6B6B"),
	lipgloss.Color("#FFA86B"),
	lipgloss.Color("#95E1D3"),
	lipgloss.Color("#4ECDC4"),
}

var (
	PrimaryColor   = lipgloss.Color("#FF6B6B")
	SecondaryColor = lipgloss.Color("#4ECDC4")
	AccentColor    = lipgloss.Color("#95E1D3")

	BackgroundColor = lipgloss.Color("#1A1A2E")
	SurfaceColor    = lipgloss.Color("#16213E")
	TextColor       = lipgloss.Color("#EAEAEA")
	MutedColor      = lipgloss.Color("#94A3B8")

	// Review statuses
	ReviewColor     = lipgloss.Color("#FFE66D")
	FlagReviewColor = lipgloss.Color("#F87171")
	ErrorColor      = lipgloss.Color("#EF4444")
	SuccessColor    = lipgloss.Color("#10B981")
)

var (
	LogoStyle           lipgloss.Style
	TitleStyle          lipgloss.Style
	HeaderStyle         lipgloss.Style
	StatusBarStyle      lipgloss.Style
	HelpStyle           lipgloss.Style
	TimeStyle           lipgloss.Style
	ModalTextStyle      lipgloss.Style
	ModalHighlightStyle lipgloss.Style
	SeparatorStyle      lipgloss.Style
	StatusInfoStyle     lipgloss.Style
	StatusSuccessStyle  lipgloss.Style
	StatusWarnStyle     lipgloss.Style
	StatusErrorStyle    lipgloss.Style
	SelectedRowStyle    lipgloss.Style
	TableHeaderStyle    lipgloss.Style
	CheckedStyle        lipgloss.Style
)

func init() {
	buildStyles()
}

func buildStyles() {
	LogoStyle = lipgloss.NewStyle().Foreground(PrimaryColor).Bold(true)

	TitleStyle = lipgloss.NewStyle().
		Foreground(TextColor).
		Background(SurfaceColor).
		Bold(true).
		Padding(0, 2)

	HeaderStyle = lipgloss.NewStyle().Foreground(SecondaryColor).Bold(true)
	StatusBarStyle = lipgloss.NewStyle().Foreground(MutedColor).Padding(0, 1)
	HelpStyle = lipgloss.NewStyle().Foreground(MutedColor).Italic(true)
	TimeStyle = lipgloss.NewStyle().Foreground(MutedColor).Faint(true)

	ModalTextStyle = lipgloss.NewStyle().Foreground(TextColor)
	ModalHighlightStyle = lipgloss.NewStyle().Foreground(ReviewColor).Bold(true)
	SeparatorStyle = lipgloss.NewStyle().Foreground(MutedColor)

	StatusInfoStyle = lipgloss.NewStyle().Foreground(MutedColor)
	StatusSuccessStyle = lipgloss.NewStyle().Foreground(SuccessColor)
	StatusWarnStyle = lipgloss.NewStyle().Foreground(ReviewColor)
	StatusErrorStyle = lipgloss.NewStyle().Foreground(ErrorColor).Bold(true)

	SelectedRowStyle = lipgloss.NewStyle().
		Foreground(BackgroundColor).
		Background(AccentColor).
		Bold(true)
	TableHeaderStyle = lipgloss.NewStyle().
		Foreground(SecondaryColor).
		Bold(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(MutedColor).
		BorderBottom(true)
	CheckedStyle = lipgloss.NewStyle().Foreground(AccentColor).Bold(true)
}

// ApplyTheme overrides the palette with configured colors. Empty entries
// keep their defaults.
func ApplyTheme(colors config.UIColors) {
	set := func(dst *lipgloss.Color, hex string) {
		if hex != "" {
			*dst = lipgloss.Color(hex)
		}
	}

	set(&PrimaryColor, colors.Primary)
	set(&SecondaryColor, colors.Secondary)
	set(&AccentColor, colors.Accent)
	set(&BackgroundColor, colors.Background)
	set(&SurfaceColor, colors.Surface)
	set(&TextColor, colors.Text)
	set(&MutedColor, colors.Muted)
	set(&ErrorColor, colors.Error)
	set(&SuccessColor, colors.Success)

	buildStyles()
}

// statusStyle colors a review status cell.
func statusStyle(status string) lipgloss.Style {
	switch status {
	case "FlagReview":
		return lipgloss.NewStyle().Foreground(FlagReviewColor).Bold(true)
	case "Review":
		return lipgloss.NewStyle().Foreground(ReviewColor)
	default:
		return lipgloss.NewStyle().Foreground(MutedColor)
	}
}

func GetEmptyQueueMessage() string {
	return GetCompactBanner("Nothing is waiting for review • ctrl+r to refresh")
}

func GetCompactBanner(message string) string {
	var coloredLines []string
	for _, line := range LogoLines {
		coloredLines = append(coloredLines, LogoStyle.Render(line))
	}

	logo := lipgloss.JoinVertical(lipgloss.Center, coloredLines...)

	return lipgloss.JoinVertical(
		lipgloss.Center,
		logo,
		"",
		HelpStyle.Render(message),
	)
}

// Banner renders the startup banner shown by the CLI.
func Banner(version string) string {
	lines := make([]string, len(LogoLines), len(LogoLines)+2)
	copy(lines, LogoLines)
	lines = append(lines, "")

	tagline := "    Moderation Queue"
	if version != "" && version != "dev" {
		if version[0] != 'v' && version[0] != 'V' {
			version = "v" + version
		}
		tagline = fmt.Sprintf("    Moderation Queue %s", version)
	}
	lines = append(lines, tagline)

	var coloredLines []string
	for i, line := range lines {
		if line == "" {
			coloredLines = append(coloredLines, line)
			continue
		}
		style := lipgloss.NewStyle().
			Foreground(BannerColors[i%len(BannerColors)]).
			Bold(i < len(LogoLines))
		coloredLines = append(coloredLines, style.Render(line))
	}

	borderStyle := lipgloss.NewStyle().
		Border(lipgloss.Border{
			Top:         "═",
			Bottom:      "═",
			Left:        "║",
			Right:       "║",
			TopLeft:     "╔",
			TopRight:    "╗",
			BottomLeft:  "╚",
			BottomRight: "╝",
		}).
		BorderForeground(SecondaryColor).
		Padding(1, 3).
		MarginTop(1)

	output := borderStyle.Render(lipgloss.JoinVertical(lipgloss.Center, coloredLines...))

	return lipgloss.NewStyle().
		Width(60).
		Align(lipgloss.Center).
		MarginBottom(1).
		Render(output)
}

// ShowBanner prints the startup banner.
func ShowBanner(version string) {
	fmt.Println(Banner(version))
}
