// Package markethours gates the trading loop on the KRX derivatives session.
package markethours

import (
	"fmt"
	"time"
)

// KST is the Korea Standard Time location (UTC+9).
var KST = time.FixedZone("KST", 9*3600)

// Session bounds in KST. Weekly options trade 09:00–15:20; the loop stops
// issuing entries at the close boundary.
const (
	OpenHour    = 9
	OpenMinute  = 0
	CloseHour   = 15
	CloseMinute = 20
)

// Now returns the current wall time in KST.
func Now() time.Time {
	return time.Now().In(KST)
}

// IsMarketOpen returns true if t falls within KRX option trading hours
// (09:00–15:20 KST, Mon–Fri, excluding holidays). The close is exclusive.
func IsMarketOpen(t time.Time) bool {
	kst := t.In(KST)
	wd := kst.Weekday()
	if wd == time.Saturday || wd == time.Sunday {
		return false
	}
	if IsHoliday(kst) {
		return false
	}
	hm := kst.Hour()*60 + kst.Minute()
	return hm >= OpenHour*60+OpenMinute && hm < CloseHour*60+CloseMinute
}

// IsWeekday returns true if t is Mon–Fri in KST.
func IsWeekday(t time.Time) bool {
	wd := t.In(KST).Weekday()
	return wd >= time.Monday && wd <= time.Friday
}

// IsTradingDay returns true if t is a weekday and not a holiday.
func IsTradingDay(t time.Time) bool {
	kst := t.In(KST)
	return IsWeekday(kst) && !IsHoliday(kst)
}

// NextOpen returns the next market open (09:00 KST on the next trading day).
// If t is before today's open on a trading day, returns today's open.
func NextOpen(t time.Time) time.Time {
	kst := t.In(KST)

	todayOpen := time.Date(kst.Year(), kst.Month(), kst.Day(), OpenHour, OpenMinute, 0, 0, KST)
	if kst.Before(todayOpen) && IsTradingDay(kst) {
		return todayOpen
	}

	d := kst.AddDate(0, 0, 1)
	for i := 0; i < 10; i++ { // holidays plus weekends never stack further
		if IsTradingDay(d) {
			return time.Date(d.Year(), d.Month(), d.Day(), OpenHour, OpenMinute, 0, 0, KST)
		}
		d = d.AddDate(0, 0, 1)
	}
	return time.Date(kst.Year(), kst.Month(), kst.Day()+1, OpenHour, OpenMinute, 0, 0, KST)
}

// TodayClose returns today's close time (15:20 KST).
func TodayClose(t time.Time) time.Time {
	kst := t.In(KST)
	return time.Date(kst.Year(), kst.Month(), kst.Day(), CloseHour, CloseMinute, 0, 0, KST)
}

// TimeUntilClose returns the duration until today's close, 0 if past it.
func TimeUntilClose(t time.Time) time.Duration {
	d := TodayClose(t).Sub(t.In(KST))
	if d < 0 {
		return 0
	}
	return d
}

// TimeUntilOpen returns the duration until the next market open.
func TimeUntilOpen(t time.Time) time.Duration {
	return NextOpen(t).Sub(t.In(KST))
}

// StatusString returns a human-readable market status for logs.
func StatusString(t time.Time) string {
	if IsMarketOpen(t) {
		return fmt.Sprintf("market open, closes in %s", fmtDur(TimeUntilClose(t)))
	}
	next := NextOpen(t)
	kst := next.In(KST)
	return fmt.Sprintf("market closed, opens %s %s (%s)",
		kst.Weekday().String()[:3], kst.Format("15:04"), fmtDur(next.Sub(t)))
}

func fmtDur(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh%dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
