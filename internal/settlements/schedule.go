package settlements

import "time"

// ScheduleFor returns the payout date for an order placed at orderDate: the
// next Wednesday strictly after it, at midnight. An order placed on a
// Wednesday waits for the following one, so every order holds for 1-7 days.
func ScheduleFor(orderDate time.Time) time.Time {
	days := (int(time.Wednesday) - int(orderDate.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	d := orderDate.AddDate(0, 0, days)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, d.Location())
}
