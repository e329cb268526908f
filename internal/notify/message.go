package notify

import (
	"fmt"
	"strings"
	"time"

	"super-odds-alerts/internal/storage"
)

var vsReplacer = strings.NewReplacer(" vs. ", " x ", " vs ", " x ")

func cleanGameName(name string) string {
	cleaned := strings.TrimSpace(vsReplacer.Replace(name))
	if cleaned == "" {
		return "Unknown event"
	}
	return cleaned
}

// RenderSuperOddAlert builds the Markdown alert for one boosted offer.
func RenderSuperOddAlert(odd storage.SuperOdd) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("⚡️ *%s*\n", cleanGameName(odd.GameName)))

	selection := strings.TrimSpace(odd.SelectionName)
	market := strings.TrimSpace(odd.MarketName)
	switch {
	case selection != "" && market != "" && !strings.EqualFold(selection, market):
		sb.WriteString(fmt.Sprintf("⚽️ %s\n🎯 %s\n", selection, market))
	case selection != "":
		sb.WriteString(fmt.Sprintf("⚽️ %s\n", selection))
	case market != "":
		sb.WriteString(fmt.Sprintf("⚽️ %s\n", market))
	}

	if odd.OriginalOdd != nil && !odd.OriginalOdd.IsZero() {
		sb.WriteString(fmt.Sprintf("💰 %s » %s\n", odd.OriginalOdd.StringFixed(2), odd.BoostedOdd.StringFixed(2)))
	} else {
		sb.WriteString(fmt.Sprintf("💰 %s\n", odd.BoostedOdd.StringFixed(2)))
	}

	sb.WriteString(fmt.Sprintf("\n*%s*\n", odd.Provider))
	sb.WriteString(fmt.Sprintf("👉 [BET HERE](%s)\n", odd.Link))
	sb.WriteString(fmt.Sprintf("Valid until: %s\n", odd.ExpireAtTimestamp.UTC().Format("02/01 15:04 MST")))
	sb.WriteString("Gamble responsibly.")

	return sb.String()
}

// RenderDigest builds the Markdown summary of the top active offers.
func RenderDigest(odds []storage.SuperOdd, now time.Time) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("📊 *Boosted odds digest %s*\n\n", now.UTC().Format("02/01/2006")))

	if len(odds) == 0 {
		sb.WriteString("No active boosted odds right now.")
		return sb.String()
	}

	for _, odd := range odds {
		sb.WriteString(fmt.Sprintf("⚡️ *%s*\n", cleanGameName(odd.GameName)))

		selection := strings.TrimSpace(odd.SelectionName)
		market := strings.TrimSpace(odd.MarketName)
		switch {
		case selection != "" && market != "" && !strings.EqualFold(selection, market):
			sb.WriteString(fmt.Sprintf("  ⚽️ %s\n  🎯 %s\n", selection, market))
		case selection != "":
			sb.WriteString(fmt.Sprintf("  ⚽️ %s\n", selection))
		case market != "":
			sb.WriteString(fmt.Sprintf("  ⚽️ %s\n", market))
		}

		if odd.OriginalOdd != nil && !odd.OriginalOdd.IsZero() {
			sb.WriteString(fmt.Sprintf("  💰 %s » %s\n", odd.OriginalOdd.StringFixed(2), odd.BoostedOdd.StringFixed(2)))
		} else {
			sb.WriteString(fmt.Sprintf("  💰 %s\n", odd.BoostedOdd.StringFixed(2)))
		}

		sb.WriteString(fmt.Sprintf("  *%s*\n", odd.Provider))
		sb.WriteString(fmt.Sprintf("  👉 [BET HERE](%s)\n", odd.Link))
		sb.WriteString(fmt.Sprintf("  Expires: %s\n\n", odd.ExpireAtTimestamp.UTC().Format("02/01 15:04 MST")))
	}

	sb.WriteString("Gamble responsibly.")
	return sb.String()
}
