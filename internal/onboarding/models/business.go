package models

import (
	"fmt"
	"sort"
	"strings"

	"github.com/asaskevich/govalidator"

	dErrors "stoop/pkg/domain-errors"
	pstrings "stoop/pkg/platform/strings"
)

const (
	MaxBusinessNameRunes = 100
	MaxDescriptionRunes  = 500
	MaxNeighborhoods     = 20
	MaxNeighborhoodRunes = 80
	minPhoneDigits       = 7
	maxPhoneDigits       = 15
	minutesPerDay        = 24 * 60
	maxWebsiteLength     = 2048
)

// Category is the closed set of business categories shown in the directory.
type Category string

const (
	CategoryRestaurant           Category = "restaurant"
	CategoryCafe                 Category = "cafe"
	CategoryRetail               Category = "retail"
	CategoryGrocery              Category = "grocery"
	CategoryHomeServices         Category = "home_services"
	CategoryBeauty               Category = "beauty"
	CategoryHealthWellness       Category = "health_wellness"
	CategoryFitness              Category = "fitness"
	CategoryAutomotive           Category = "automotive"
	CategoryProfessionalServices Category = "professional_services"
	CategoryEducation            Category = "education"
	CategoryChildcare            Category = "childcare"
	CategoryPets                 Category = "pets"
	CategoryRealEstate           Category = "real_estate"
	CategoryArtsEntertainment    Category = "arts_entertainment"
	CategoryOther                Category = "other"
)

var categories = map[Category]struct{}{
	CategoryRestaurant:           {},
	CategoryCafe:                 {},
	CategoryRetail:               {},
	CategoryGrocery:              {},
	CategoryHomeServices:         {},
	CategoryBeauty:               {},
	CategoryHealthWellness:       {},
	CategoryFitness:              {},
	CategoryAutomotive:           {},
	CategoryProfessionalServices: {},
	CategoryEducation:            {},
	CategoryChildcare:            {},
	CategoryPets:                 {},
	CategoryRealEstate:           {},
	CategoryArtsEntertainment:    {},
	CategoryOther:                {},
}

func (c Category) IsValid() bool {
	_, ok := categories[c]
	return ok
}

// Categories lists every category in stable order.
func Categories() []Category {
	out := make([]Category, 0, len(categories))
	for c := range categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

type Weekday string

const (
	Monday    Weekday = "monday"
	Tuesday   Weekday = "tuesday"
	Wednesday Weekday = "wednesday"
	Thursday  Weekday = "thursday"
	Friday    Weekday = "friday"
	Saturday  Weekday = "saturday"
	Sunday    Weekday = "sunday"
)

var weekdays = map[Weekday]struct{}{
	Monday: {}, Tuesday: {}, Wednesday: {}, Thursday: {}, Friday: {}, Saturday: {}, Sunday: {},
}

// DayHours is one weekday's opening window. Open and Close are HH:MM on a
// 24-hour clock; Close may be "24:00".
type DayHours struct {
	Open   string `json:"open,omitempty"`
	Close  string `json:"close,omitempty"`
	Closed bool   `json:"closed"`
}

// WeeklyHours maps weekdays to their hours. Missing days are unspecified.
type WeeklyHours map[Weekday]DayHours

// BusinessProfile is the directory listing of a business account.
type BusinessProfile struct {
	Name          string      `json:"name"`
	Category      Category    `json:"category"`
	Description   string      `json:"description,omitempty"`
	Website       string      `json:"website,omitempty"`
	Phone         string      `json:"phone,omitempty"`
	Hours         WeeklyHours `json:"hours,omitempty"`
	Neighborhoods []string    `json:"neighborhoods,omitempty"`
}

// Normalize validates p and returns a cleaned copy: whitespace collapsed,
// category lower-cased, neighborhoods deduplicated, closed days stripped of
// their times.
func (p BusinessProfile) Normalize() (BusinessProfile, error) {
	out := BusinessProfile{
		Name:        pstrings.CollapseSpace(p.Name),
		Category:    Category(strings.ToLower(strings.TrimSpace(string(p.Category)))),
		Description: strings.TrimSpace(p.Description),
		Website:     strings.TrimSpace(p.Website),
	}

	if out.Name == "" {
		return BusinessProfile{}, dErrors.New(dErrors.CodeValidation, "business name is required")
	}
	if pstrings.RuneLen(out.Name) > MaxBusinessNameRunes {
		return BusinessProfile{}, dErrors.New(dErrors.CodeValidation,
			fmt.Sprintf("business name must be %d characters or less", MaxBusinessNameRunes))
	}
	if !out.Category.IsValid() {
		return BusinessProfile{}, dErrors.New(dErrors.CodeValidation, "unknown business category")
	}
	if pstrings.RuneLen(out.Description) > MaxDescriptionRunes {
		return BusinessProfile{}, dErrors.New(dErrors.CodeValidation,
			fmt.Sprintf("description must be %d characters or less", MaxDescriptionRunes))
	}
	if out.Website != "" {
		if len(out.Website) > maxWebsiteLength || !govalidator.IsURL(out.Website) {
			return BusinessProfile{}, dErrors.New(dErrors.CodeValidation, "website must be a valid URL")
		}
	}

	phone, err := normalizePhone(p.Phone)
	if err != nil {
		return BusinessProfile{}, err
	}
	out.Phone = phone

	hours, err := p.Hours.normalize()
	if err != nil {
		return BusinessProfile{}, err
	}
	out.Hours = hours

	out.Neighborhoods = pstrings.DedupeFold(p.Neighborhoods)
	if len(out.Neighborhoods) > MaxNeighborhoods {
		return BusinessProfile{}, dErrors.New(dErrors.CodeValidation,
			fmt.Sprintf("at most %d neighborhoods", MaxNeighborhoods))
	}
	for _, n := range out.Neighborhoods {
		if pstrings.RuneLen(n) > MaxNeighborhoodRunes {
			return BusinessProfile{}, dErrors.New(dErrors.CodeValidation, "neighborhood name is too long")
		}
	}
	return out, nil
}

func (h WeeklyHours) normalize() (WeeklyHours, error) {
	if len(h) == 0 {
		return nil, nil
	}
	out := make(WeeklyHours, len(h))
	for rawDay, d := range h {
		day := Weekday(strings.ToLower(strings.TrimSpace(string(rawDay))))
		if _, ok := weekdays[day]; !ok {
			return nil, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unknown weekday %q", rawDay))
		}
		if _, dup := out[day]; dup {
			return nil, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("hours for %s given twice", day))
		}
		if d.Closed {
			out[day] = DayHours{Closed: true}
			continue
		}
		open, err := parseClock(d.Open)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeValidation, fmt.Sprintf("invalid opening time for %s", day))
		}
		closing, err := parseClock(d.Close)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeValidation, fmt.Sprintf("invalid closing time for %s", day))
		}
		if open >= minutesPerDay {
			return nil, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("invalid opening time for %s", day))
		}
		if closing <= open {
			return nil, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("%s closes before it opens", day))
		}
		out[day] = DayHours{Open: formatClock(open), Close: formatClock(closing)}
	}
	return out, nil
}

// parseClock turns HH:MM into minutes after midnight. 24:00 is accepted as the
// end of day.
func parseClock(s string) (int, error) {
	s = strings.TrimSpace(s)
	if len(s) != 5 || s[2] != ':' {
		return 0, fmt.Errorf("time %q is not HH:MM", s)
	}
	hh, mm := s[:2], s[3:]
	if !govalidator.IsNumeric(hh) || !govalidator.IsNumeric(mm) {
		return 0, fmt.Errorf("time %q is not HH:MM", s)
	}
	h := int(hh[0]-'0')*10 + int(hh[1]-'0')
	m := int(mm[0]-'0')*10 + int(mm[1]-'0')
	if m > 59 || h > 24 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("time %q out of range", s)
	}
	return h*60 + m, nil
}

func formatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// normalizePhone strips separators and keeps an optional leading plus.
func normalizePhone(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	var b strings.Builder
	for i, r := range raw {
		switch {
		case r == '+' && i == 0:
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '(' || r == ')' || r == '.':
		default:
			b.WriteRune(r)
		}
	}
	phone := b.String()
	digits := strings.TrimPrefix(phone, "+")
	if !govalidator.IsNumeric(digits) || len(digits) < minPhoneDigits || len(digits) > maxPhoneDigits {
		return "", dErrors.New(dErrors.CodeValidation, "phone must be 7 to 15 digits")
	}
	return phone, nil
}
