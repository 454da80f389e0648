package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"teuggahunter-service/internal/domain/entity"
	"teuggahunter-service/pkg/logger"
)

// routeWindowSize bounds how far past a price match we look for
// airline/route segments belonging to that price block. Measured in
// characters, not bytes: Hangul text is three bytes per rune and a byte
// bound would shrink the window to a third of its intended reach.
const routeWindowSize = 500

var (
	// "1월 23일 (목) - 1월 28일 (화)" — the weekday annotation is ignored
	datePattern = regexp.MustCompile(`(\d{1,2})월\s*(\d{1,2})일\s*\([^)]*\)\s*-\s*(\d{1,2})월\s*(\d{1,2})일\s*\([^)]*\)`)

	// "20% 할인 최저가: ₩450,000" or "최저가: ₩450,000"
	pricePattern = regexp.MustCompile(`(?:\d+%\s*할인\s*)?최저가:\s*₩([\d,]+)`)

	// "대한항공·직항·ICN–LAX" — airline, direct/transit marker, route
	routePattern = regexp.MustCompile(`([^·\n]+)·\s*(직항|경유)\s*·\s*([A-Z]{3})[–-]([A-Z]{3})`)

	linkPattern = regexp.MustCompile(`https://www\.google\.com/travel/flights\?[^\s"]+`)

	// "여행자들은 일반적으로 ₩800,000의 가격으로 예약합니다"
	avgPricePattern = regexp.MustCompile(`여행자들은 일반적으로 ₩([\d,]+)의 가격으로 예약합니다`)

	// "대개 ₩700,000–₩900,000 사이입니다"
	rangePattern = regexp.MustCompile(`대개\s*₩([\d,]+)\s*[–-]\s*₩([\d,]+)\s*사이입니다`)

	discountPattern = regexp.MustCompile(`\d+%\s*할인`)
)

const directMarker = "직항"

// dealContext is the body-wide deal signal, computed once per email and
// applied to every offer extracted from it. A discount marker anywhere in
// the body marks all of that body's offers as special deals.
type dealContext struct {
	refPrice    int
	hasRefPrice bool
	hasDiscount bool
}

func (d dealContext) isSpecial(price int) bool {
	if d.hasDiscount {
		return true
	}
	return d.hasRefPrice && price < d.refPrice
}

// Engine extracts offer records from decoded email bodies.
type Engine struct {
	logger logger.Logger
	now    func() time.Time
}

// NewEngine creates an extraction engine.
func NewEngine(logger logger.Logger) *Engine {
	return &Engine{
		logger: logger,
		now:    time.Now,
	}
}

// Extract parses the body with the grammar selected by label and returns
// zero or more offers. Every match failure degrades to skipping that
// candidate; Extract never fails the email as a whole.
func (e *Engine) Extract(label, body string) []*entity.Offer {
	source := ParseSource(label)
	switch source {
	case SourceGoogleFlights:
		return e.extractGoogleFlights(label, body)
	case SourceSecretFlying:
		// Recognized source, grammar not implemented yet.
		e.logger.Debug("No grammar for source", "source", source.String())
		return nil
	default:
		e.logger.Warn("Unknown source label", "label", label)
		return nil
	}
}

// extractGoogleFlights scans the body for date-range blocks, then for each
// block the nearest following price, then airline/route segments within a
// bounded window after that price. A block missing any stage is dropped
// without emitting a partial record.
func (e *Engine) extractGoogleFlights(label, body string) []*entity.Offer {
	deal := e.scanDealContext(body)

	var offers []*entity.Offer

	for _, dateMatch := range datePattern.FindAllStringSubmatchIndex(body, -1) {
		departDate, returnDate, ok := e.resolveDates(body, dateMatch)
		if !ok {
			continue
		}

		// Nearest price mention after this date block.
		rest := body[dateMatch[1]:]
		priceMatch := pricePattern.FindStringSubmatchIndex(rest)
		if priceMatch == nil {
			e.logger.Debug("Date block without price, skipping",
				"departDate", departDate)
			continue
		}
		price, err := parseWonAmount(rest[priceMatch[2]:priceMatch[3]])
		if err != nil {
			continue
		}

		windowStart := dateMatch[1] + priceMatch[1]
		window := runePrefix(body[windowStart:], routeWindowSize)

		routes := routePattern.FindAllStringSubmatchIndex(window, -1)
		if len(routes) == 0 {
			e.logger.Debug("Price block without route segment, skipping",
				"departDate", departDate, "price", price)
			continue
		}

		for i, route := range routes {
			airline := strings.TrimSpace(window[route[2]:route[3]])
			marker := window[route[4]:route[5]]
			origin := window[route[6]:route[7]]
			destination := window[route[8]:route[9]]

			// Each occurrence resolves its own link from the text following
			// it, bounded by the next occurrence so links are never shared.
			linkRegion := window[route[1]:]
			if i+1 < len(routes) {
				linkRegion = window[route[1]:routes[i+1][0]]
			}
			link := linkPattern.FindString(linkRegion)

			offer := &entity.Offer{
				Source:        label,
				Origin:        origin,
				Destination:   destination,
				DepartureDate: departDate,
				ArrivalDate:   returnDate,
				Airline:       airline,
				Price:         price,
				Link:          link,
				Direct:        marker == directMarker,
				IsSpecialDeal: deal.isSpecial(price),
			}
			offer.HashKey = offer.ComputeHashKey()
			offers = append(offers, offer)
		}
	}

	e.logger.Info("Offer extraction completed",
		"label", label,
		"offerCount", len(offers))

	return offers
}

// resolveDates converts a date-range match into ISO dates, inferring the
// year per month: a month numerically before the current month is assumed
// to belong to next year. This handles deals that span a New Year and
// misfires for deals posted more than ~11 months ahead — a known
// approximation carried over deliberately.
func (e *Engine) resolveDates(body string, m []int) (depart, ret string, ok bool) {
	departMonth, err1 := strconv.Atoi(body[m[2]:m[3]])
	departDay, err2 := strconv.Atoi(body[m[4]:m[5]])
	returnMonth, err3 := strconv.Atoi(body[m[6]:m[7]])
	returnDay, err4 := strconv.Atoi(body[m[8]:m[9]])
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		return "", "", false
	}

	now := e.now()
	currentYear := now.Year()
	currentMonth := int(now.Month())

	departYear := currentYear
	if departMonth < currentMonth {
		departYear++
	}
	returnYear := currentYear
	if returnMonth < currentMonth {
		returnYear++
	}

	depart, ok = calendarDate(departYear, departMonth, departDay)
	if !ok {
		return "", "", false
	}
	ret, ok = calendarDate(returnYear, returnMonth, returnDay)
	if !ok {
		return "", "", false
	}
	return depart, ret, true
}

// calendarDate formats a year/month/day triple, rejecting values that
// time.Date would silently normalize (a "2월 30일" candidate must be
// skipped, not shifted into March).
func calendarDate(year, month, day int) (string, bool) {
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if d.Year() != year || d.Month() != time.Month(month) || d.Day() != day {
		return "", false
	}
	return d.Format(entity.DateLayout), true
}

// runePrefix truncates s to at most n characters without splitting a rune.
func runePrefix(s string, n int) string {
	for i := range s {
		if n == 0 {
			return s[:i]
		}
		n--
	}
	return s
}

// scanDealContext computes the body-wide reference price and discount flag.
// The explicit average-price sentence wins over the typical-range sentence;
// the range's lower bound is used when only the range is present.
func (e *Engine) scanDealContext(body string) dealContext {
	var deal dealContext

	if m := avgPricePattern.FindStringSubmatch(body); m != nil {
		if price, err := parseWonAmount(m[1]); err == nil {
			deal.refPrice = price
			deal.hasRefPrice = true
		}
	} else if m := rangePattern.FindStringSubmatch(body); m != nil {
		if price, err := parseWonAmount(m[1]); err == nil {
			deal.refPrice = price
			deal.hasRefPrice = true
		}
	}

	deal.hasDiscount = discountPattern.MatchString(body)

	e.logger.Debug("Deal context scanned",
		"refPrice", deal.refPrice,
		"hasRefPrice", deal.hasRefPrice,
		"hasDiscount", deal.hasDiscount)

	return deal
}

// parseWonAmount parses a thousands-separated amount like "450,000".
func parseWonAmount(raw string) (int, error) {
	return strconv.Atoi(strings.ReplaceAll(raw, ",", ""))
}
