package status

import "strings"

// keywords maps each canonical state to the display labels and localized
// synonyms seen in the wild. Matching is case-insensitive and exact after
// trimming; substring heuristics were dropped on purpose ("returned"
// contains "return" but "pre-return check" must not match anything).
var keywords = map[State][]string{
	Pending:    {"pending", "new", "placed", "قيد الانتظار", "معلق"},
	Processing: {"processing", "in progress", "preparing", "قيد التجهيز", "جاري التجهيز"},
	Shipped:    {"shipped", "shipping", "in transit", "تم الشحن", "تم ارسال", "تم الإرسال"},
	Delivered:  {"delivered", "deliver", "تم التسليم", "تم التوصيل"},
	Completed:  {"completed", "complete", "success", "مكتمل"},
	Cancelled:  {"cancelled", "canceled", "cancel", "ملغي", "ملغى", "إلغاء", "الغاء"},
	Returned:   {"returned", "return", "مرتجع", "مرتجعات", "استرجاع", "ارجاع", "إرجاع"},
	Refunded:   {"refunded", "refund", "تم الاسترداد"},
}

var byLabel = func() map[string]State {
	m := make(map[string]State)
	for state, labels := range keywords {
		for _, l := range labels {
			m[l] = state
		}
	}
	return m
}()

// Normalize maps a free-text status label onto a canonical state.
// Returns Unknown when no keyword matches.
func Normalize(label string) State {
	l := strings.ToLower(strings.TrimSpace(label))
	if l == "" {
		return Unknown
	}
	if s, ok := byLabel[l]; ok {
		return s
	}
	return Unknown
}
