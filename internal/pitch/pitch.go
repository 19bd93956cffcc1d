// Package pitch measures pitch text against the site's length categories.
//
// Lengths are UTF-8 byte counts so the client counter agrees with the
// server-side validation, which compares len(content).
package pitch

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/bitcoinpitch/tour/internal/platform/config"
)

// Category is the length class of a pitch.
type Category string

const (
	CategoryOneLiner Category = "one-liner"
	CategorySMS      Category = "sms"
	CategoryTweet    Category = "tweet"
	CategoryElevator Category = "elevator"
	CategoryTooLong  Category = "too-long"
)

// Label is the category as shown next to the counter, e.g. "One-liner".
func (c Category) Label() string {
	if c == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(string(c))
	return strings.ToUpper(string(r)) + string(c)[size:]
}

// ErrInvalidLimits reports limits that are not strictly ordered.
var ErrInvalidLimits = errors.New("invalid pitch limits")

// Limits are the byte bounds of each category.
type Limits struct {
	OneLinerMin int `env:"PITCH_ONE_LINER_MIN" envDefault:"3" json:"one_liner_min"`
	OneLinerMax int `env:"PITCH_ONE_LINER_MAX" envDefault:"30" json:"one_liner_max"`
	SMSMax      int `env:"PITCH_SMS_MAX" envDefault:"80" json:"sms_max"`
	TweetMax    int `env:"PITCH_TWEET_MAX" envDefault:"280" json:"tweet_max"`
	ElevatorMax int `env:"PITCH_ELEVATOR_MAX" envDefault:"1024" json:"elevator_max"`
}

// DefaultLimits matches the limits the site ships with.
func DefaultLimits() Limits {
	return Limits{OneLinerMin: 3, OneLinerMax: 30, SMSMax: 80, TweetMax: 280, ElevatorMax: 1024}
}

// LoadLimits reads BITCOINPITCH_PITCH_* overrides on top of the defaults.
func LoadLimits() (Limits, error) {
	var l Limits
	if err := config.ParseEnvWithPrefix(&l, config.EnvPrefix); err != nil {
		return Limits{}, err
	}
	if err := l.Validate(); err != nil {
		return Limits{}, err
	}
	return l, nil
}

// Validate checks 0 < one-liner min <= one-liner max < sms < tweet < elevator.
func (l Limits) Validate() error {
	switch {
	case l.OneLinerMin <= 0:
		return fmt.Errorf("one-liner min %d must be positive: %w", l.OneLinerMin, ErrInvalidLimits)
	case l.OneLinerMax < l.OneLinerMin:
		return fmt.Errorf("one-liner max %d below min %d: %w", l.OneLinerMax, l.OneLinerMin, ErrInvalidLimits)
	case l.SMSMax <= l.OneLinerMax:
		return fmt.Errorf("sms max %d must exceed one-liner max %d: %w", l.SMSMax, l.OneLinerMax, ErrInvalidLimits)
	case l.TweetMax <= l.SMSMax:
		return fmt.Errorf("tweet max %d must exceed sms max %d: %w", l.TweetMax, l.SMSMax, ErrInvalidLimits)
	case l.ElevatorMax <= l.TweetMax:
		return fmt.Errorf("elevator max %d must exceed tweet max %d: %w", l.ElevatorMax, l.TweetMax, ErrInvalidLimits)
	}
	return nil
}

// Classify returns the category of content measured in UTF-8 bytes. Text
// shorter than a one-liner counts as an SMS, as the site's validation does.
func (l Limits) Classify(content string) Category {
	n := len(content)
	switch {
	case n >= l.OneLinerMin && n <= l.OneLinerMax:
		return CategoryOneLiner
	case n <= l.SMSMax:
		return CategorySMS
	case n <= l.TweetMax:
		return CategoryTweet
	case n <= l.ElevatorMax:
		return CategoryElevator
	default:
		return CategoryTooLong
	}
}

// Max returns the byte bound of c. Too-long text is bounded by the elevator limit.
func (l Limits) Max(c Category) int {
	switch c {
	case CategoryOneLiner:
		return l.OneLinerMax
	case CategorySMS:
		return l.SMSMax
	case CategoryTweet:
		return l.TweetMax
	default:
		return l.ElevatorMax
	}
}

// Split cuts content after at most limit bytes without breaking a rune.
// Invalid bytes count as one-byte runes.
func Split(content string, limit int) (fits string, overflow string) {
	if limit <= 0 {
		return "", content
	}
	if len(content) <= limit {
		return content, ""
	}
	cut := 0
	for cut < len(content) {
		_, size := utf8.DecodeRuneInString(content[cut:])
		if cut+size > limit {
			break
		}
		cut += size
	}
	return content[:cut], content[cut:]
}

// Measurement is a pitch's length report for the character counter.
type Measurement struct {
	Bytes    int
	Category Category
	Max      int
	Fits     string
	Overflow string
}

// Measure trims surrounding whitespace from content, classifies the rest and
// splits it at the bound of its category.
func (l Limits) Measure(content string) Measurement {
	trimmed := strings.TrimSpace(content)
	category := l.Classify(trimmed)
	limit := l.Max(category)
	fits, overflow := Split(trimmed, limit)
	return Measurement{
		Bytes:    len(trimmed),
		Category: category,
		Max:      limit,
		Fits:     fits,
		Overflow: overflow,
	}
}
