package render

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/sipeed/picotune/pkg/mensa"
)

const maxFields = 25

// MealPlan renders a canteen's day, one field per category.
func MealPlan(canteen string, day time.Time, meals []mensa.Meal) *discordgo.MessageEmbed {
	e := &discordgo.MessageEmbed{
		Title: fmt.Sprintf("%s · %s", canteen, day.Format("Mon 02 Jan")),
		Color: ColorInfo,
	}
	if len(meals) == 0 {
		e.Description = "Closed or no plan published."
		return e
	}

	byCategory := make(map[string][]string)
	var order []string
	for _, m := range meals {
		cat := m.Category
		if cat == "" {
			cat = "Other"
		}
		if _, seen := byCategory[cat]; !seen {
			order = append(order, cat)
		}
		line := m.Name
		if price, ok := m.StudentPrice(); ok {
			line += fmt.Sprintf(" · %.2f €", price)
		}
		byCategory[cat] = append(byCategory[cat], line)
	}
	sort.SliceStable(order, func(i, j int) bool { return order[i] < order[j] })

	for _, cat := range order {
		if len(e.Fields) == maxFields {
			break
		}
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{
			Name:  cat,
			Value: truncate(strings.Join(byCategory[cat], "\n"), 1024),
		})
	}
	return e
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
