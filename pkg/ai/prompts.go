package ai

import (
	"fmt"
	"strings"

	"clouddesign.com.br/storefront/pkg/mongo"
)

const DashboardSystemPrompt = `You are a marketing analyst for a small print shop that sells business cards, banners, stickers and promotional kits online.
Orders are closed over WhatsApp, so product page views are the main demand signal.
From the view counts you receive, write short, practical insights:
- which products and categories attract attention
- products that deserve a promotion, a kit or a better photo
- one or two concrete actions for this week
Answer in Brazilian Portuguese, in at most three short paragraphs.`

func formatDashboardPrompt(stats *mongo.DashboardStats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Total product views: %d\n", stats.TotalViews)
	fmt.Fprintf(&b, "Products in catalog: %d\n", stats.TotalProducts)

	if len(stats.TopProducts) > 0 {
		b.WriteString("\nMost viewed products:\n")
		for i, p := range stats.TopProducts {
			fmt.Fprintf(&b, "%d. %s (%s): %d views\n", i+1, p.Name, orNone(p.CategoryName), p.ViewsCount)
		}
	}
	if len(stats.ByCategory) > 0 {
		b.WriteString("\nViews by category:\n")
		for _, c := range stats.ByCategory {
			fmt.Fprintf(&b, "- %s: %d views over %d products\n", c.Category, c.Views, c.ProductCount)
		}
	}
	b.WriteString("\nWhat should the shop do with this?")
	return b.String()
}

func orNone(s string) string {
	if s == "" {
		return "sem categoria"
	}
	return s
}
