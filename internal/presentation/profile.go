package presentation

import (
	"fmt"
	"math/rand/v2"
	"strings"

	domainauth "github.com/nutrinom/nutrinom-go/internal/domain/auth"
	"github.com/nutrinom/nutrinom-go/internal/domain/scan"
)

// appleNamePlaceholder is what the backend stores when Sign in with Apple
// did not share a name.
const appleNamePlaceholder = "Apple User"

// HistoryView is the derived model of the history list.
type HistoryView struct {
	Header string
	Empty  bool
	Items  []HistoryItem
}

// HistoryItem is one row of the history list.
type HistoryItem struct {
	Index     int // 1-based, used by the CLI "show" command
	ProductID string
	Name      string
	ImageURL  string
}

// BuildHistoryView derives the history list.
func BuildHistoryView(entries []scan.HistoryEntry) HistoryView {
	if len(entries) == 0 {
		return HistoryView{Header: "No scan history found", Empty: true}
	}
	items := make([]HistoryItem, 0, len(entries))
	for i, e := range entries {
		name := strings.TrimSpace(e.ProductName)
		if name == "" {
			name = "Product " + e.ProductID
		}
		items = append(items, HistoryItem{
			Index:     i + 1,
			ProductID: e.ProductID,
			Name:      name,
			ImageURL:  e.ProductImage,
		})
	}
	return HistoryView{
		Header: fmt.Sprintf("Scan History (%d items)", len(entries)),
		Items:  items,
	}
}

// ProfileView is the derived model of the profile screen.
type ProfileView struct {
	Greeting string
	Name     string
	Email    string
	Fact     string
}

// Greeting thanks the user by given name, skipping the Apple placeholder.
func Greeting(u *domainauth.User) string {
	if u == nil {
		return "Thank You"
	}
	given := strings.TrimSpace(u.GivenName)
	if given == "" || given == appleNamePlaceholder {
		return "Thank You"
	}
	return "Thank You, " + given
}

// BuildProfileView derives the profile screen. fact is usually RandomFoodFact().
func BuildProfileView(sess domainauth.Session, fact string) ProfileView {
	v := ProfileView{Greeting: Greeting(sess.User), Fact: fact}
	if sess.User != nil {
		v.Name = sess.User.DisplayName()
		v.Email = sess.User.Email
	}
	return v
}

// RandomFoodFact picks one of FoodFacts.
func RandomFoodFact() string {
	return FoodFacts[rand.IntN(len(FoodFacts))]
}

// FoodFacts are shown on the profile screen.
var FoodFacts = []string{
	"Bananas are berries, but strawberries aren't!",
	"Pineapples take about two years to grow, making every bite worth the wait.",
	"Potatoes were the first vegetable grown in space.",
	"Apples float because they are 25% air.",
	"Jellybeans can take up to 21 days to make.",
	"Cheese is the most stolen food in the world.",
	"The popsicle was invented by an 11-year-old by accident.",
	"Carrots were originally purple, not orange.",
	"Lobsters used to be so cheap they were served in prisons.",
	"Cotton candy was co-invented by a dentist.",
	"Watermelons are 92% water.",
	"Almonds are seeds, not nuts.",
	"Cucumbers are 95% water.",
	"Ketchup was once sold as medicine in the 1830s.",
	"An avocado is technically a berry.",
	"A shrimp's heart is in its head.",
	"The oldest known recipe is for beer, from over 4,000 years ago.",
	"Egg yolks are one of the few foods that naturally contain Vitamin D.",
	"It takes about 400 cocoa beans to make one pound of chocolate.",
	"Cashews grow on cashew apples, and their shells are toxic before processing.",
	"Coffee beans are the seeds of a cherry-like fruit.",
	"Pomegranates can have up to 1,400 seeds each.",
}
