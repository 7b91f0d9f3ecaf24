package notification

import (
	"fmt"
	"strings"

	"library-service/internal/models"
)

// NoOverdueMessage is sent by the daily sweep when nothing is overdue.
const NoOverdueMessage = "No borrowings are overdue today!"

// BorrowedMessage is the text announcing a new borrowing.
func BorrowedMessage(email, title string) string {
	return fmt.Sprintf("%s borrowed the book '%s'.", email, title)
}

// OverdueReport summarises overdue borrowings, one line per borrower in the order
// borrowers first appear, listing their titles in input order.
func OverdueReport(overdue []models.Borrowing) string {
	if len(overdue) == 0 {
		return NoOverdueMessage
	}

	var order []string
	titles := make(map[string][]string)
	for _, b := range overdue {
		email := b.User.Email
		if _, seen := titles[email]; !seen {
			order = append(order, email)
		}
		titles[email] = append(titles[email], b.Book.Title)
	}

	lines := make([]string, 0, len(order))
	for _, email := range order {
		lines = append(lines, fmt.Sprintf("%s still has not returned the books: %s.",
			email, strings.Join(titles[email], ", ")))
	}
	return strings.Join(lines, "\n")
}
