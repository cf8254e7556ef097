package enrich

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Categories the dictionary and model categorizers assign
const (
	CategoryVideo       = "video"
	CategoryMusic       = "music"
	CategoryShopping    = "shopping"
	CategorySoftware    = "software"
	CategoryCloud       = "cloud"
	CategoryGames       = "games"
	CategoryNews        = "news"
	CategoryFood        = "food"
	CategoryCafe        = "cafe"
	CategoryConvenience = "convenience"
	CategoryTransport   = "transport"
	CategoryTelecom     = "telecom"
	CategoryUtilities   = "utilities"
	CategoryTravel      = "travel"
	CategoryOther       = "other"
)

// Categories lists every known category
var Categories = []string{
	CategoryVideo, CategoryMusic, CategoryShopping, CategorySoftware, CategoryCloud,
	CategoryGames, CategoryNews, CategoryFood, CategoryCafe, CategoryConvenience,
	CategoryTransport, CategoryTelecom, CategoryUtilities, CategoryTravel, CategoryOther,
}

// Billing frequencies
const (
	BillingMonthly = "monthly"
	BillingYearly  = "yearly"
	BillingWeekly  = "weekly"
	BillingOnce    = "once"
)

// Entry is one known merchant or service
type Entry struct {
	Name         string   `yaml:"name"`
	Category     string   `yaml:"category"`
	Patterns     []string `yaml:"patterns"`
	Aliases      []string `yaml:"aliases"`
	Domains      []string `yaml:"domains"`
	TypicalPrice int64    `yaml:"typical_price"`
	Billing      string   `yaml:"billing"`

	compiled []*regexp.Regexp
	aliases  []string
}

// Subscription reports whether the entry bills on a schedule
func (e *Entry) Subscription() bool {
	switch e.Billing {
	case BillingMonthly, BillingYearly, BillingWeekly:
		return true
	}
	return false
}

func (e *Entry) compile() error {
	e.compiled = make([]*regexp.Regexp, 0, len(e.Patterns))
	for _, p := range e.Patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return fmt.Errorf("invalid pattern %q for %s: %w", p, e.Name, err)
		}
		e.compiled = append(e.compiled, re)
	}

	e.aliases = make([]string, 0, len(e.Aliases)+1)
	for _, a := range append([]string{e.Name}, e.Aliases...) {
		if n := NormalizeName(a); n != "" {
			e.aliases = append(e.aliases, n)
		}
	}
	if e.Category == "" {
		e.Category = CategoryOther
	}
	return nil
}

// Dictionary is a read-only set of entries, safe to share between goroutines
type Dictionary struct {
	entries []*Entry
}

type dictionaryFile struct {
	Entries []Entry `yaml:"entries"`
}

// NewDictionary compiles the given entries
func NewDictionary(entries []Entry) (*Dictionary, error) {
	d := &Dictionary{entries: make([]*Entry, 0, len(entries))}
	for i := range entries {
		e := entries[i]
		if strings.TrimSpace(e.Name) == "" {
			return nil, fmt.Errorf("dictionary entry %d has no name", i)
		}
		if err := e.compile(); err != nil {
			return nil, err
		}
		d.entries = append(d.entries, &e)
	}
	return d, nil
}

// DefaultDictionary returns the built-in dictionary
func DefaultDictionary() *Dictionary {
	d, err := NewDictionary(defaultEntries)
	if err != nil {
		panic(err)
	}
	return d
}

// LoadDictionary reads a YAML dictionary and merges it over the built-in entries.
// File entries replace built-in entries with the same name.
func LoadDictionary(path string) (*Dictionary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dictionary: %w", err)
	}
	return ParseDictionary(data)
}

// ParseDictionary parses YAML dictionary data and merges it over the built-in entries
func ParseDictionary(data []byte) (*Dictionary, error) {
	var file dictionaryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse dictionary: %w", err)
	}

	merged := make([]Entry, 0, len(defaultEntries)+len(file.Entries))
	index := make(map[string]int)
	for _, e := range defaultEntries {
		index[strings.ToLower(e.Name)] = len(merged)
		merged = append(merged, e)
	}
	for _, e := range file.Entries {
		key := strings.ToLower(strings.TrimSpace(e.Name))
		if i, ok := index[key]; ok {
			merged[i] = e
			continue
		}
		index[key] = len(merged)
		merged = append(merged, e)
	}
	return NewDictionary(merged)
}

// Len returns the number of entries
func (d *Dictionary) Len() int {
	return len(d.entries)
}

// Lookup returns the entry with the given name
func (d *Dictionary) Lookup(name string) (*Entry, bool) {
	for _, e := range d.entries {
		if strings.EqualFold(e.Name, name) {
			return e, true
		}
	}
	return nil, false
}

var defaultEntries = []Entry{
	{Name: "Netflix", Category: CategoryVideo, Patterns: []string{`netflix`, `ネットフリックス`}, Domains: []string{"netflix.com"}, TypicalPrice: 1490, Billing: BillingMonthly},
	{Name: "Amazon Prime", Category: CategoryVideo, Patterns: []string{`amazon\s*prime`, `プライム会費`, `アマゾンプライム`}, Aliases: []string{"amzn prime", "prime video"}, TypicalPrice: 600, Billing: BillingMonthly},
	{Name: "Amazon", Category: CategoryShopping, Patterns: []string{`amazon\.co\.jp`, `^amazon$`, `アマゾン`}, Aliases: []string{"amzn mktp", "amazon co jp", "amazon.co.jp"}, Domains: []string{"amazon.co.jp"}},
	{Name: "Spotify", Category: CategoryMusic, Patterns: []string{`spotify`, `スポティファイ`}, Domains: []string{"spotify.com"}, TypicalPrice: 980, Billing: BillingMonthly},
	{Name: "Apple Music", Category: CategoryMusic, Patterns: []string{`apple\s*music`}, TypicalPrice: 1080, Billing: BillingMonthly},
	{Name: "iCloud+", Category: CategoryCloud, Patterns: []string{`icloud`}, Aliases: []string{"apple.com/bill"}, TypicalPrice: 130, Billing: BillingMonthly},
	{Name: "YouTube Premium", Category: CategoryVideo, Patterns: []string{`youtube\s*premium`, `youtube`}, Aliases: []string{"google youtube"}, TypicalPrice: 1280, Billing: BillingMonthly},
	{Name: "Disney+", Category: CategoryVideo, Patterns: []string{`disney\s*\+|disney\s*plus`, `ディズニープラス`}, TypicalPrice: 990, Billing: BillingMonthly},
	{Name: "U-NEXT", Category: CategoryVideo, Patterns: []string{`u-?next`}, Aliases: []string{"ユーネクスト"}, TypicalPrice: 2189, Billing: BillingMonthly},
	{Name: "Hulu", Category: CategoryVideo, Patterns: []string{`hulu`, `フールー`}, TypicalPrice: 1026, Billing: BillingMonthly},
	{Name: "DAZN", Category: CategoryVideo, Patterns: []string{`dazn`, `ダゾーン`}, TypicalPrice: 4200, Billing: BillingMonthly},
	{Name: "Adobe", Category: CategorySoftware, Patterns: []string{`adobe`, `アドビ`}, Domains: []string{"adobe.com"}, TypicalPrice: 6480, Billing: BillingMonthly},
	{Name: "Microsoft 365", Category: CategorySoftware, Patterns: []string{`microsoft\s*365`, `office\s*365`}, Aliases: []string{"msft"}, TypicalPrice: 14900, Billing: BillingYearly},
	{Name: "ChatGPT", Category: CategorySoftware, Patterns: []string{`chatgpt`, `openai`}, Domains: []string{"openai.com"}, TypicalPrice: 3000, Billing: BillingMonthly},
	{Name: "Google One", Category: CategoryCloud, Patterns: []string{`google\s*one`}, TypicalPrice: 250, Billing: BillingMonthly},
	{Name: "Dropbox", Category: CategoryCloud, Patterns: []string{`dropbox`}, TypicalPrice: 1500, Billing: BillingMonthly},
	{Name: "Nintendo Switch Online", Category: CategoryGames, Patterns: []string{`nintendo`, `任天堂`}, TypicalPrice: 2400, Billing: BillingYearly},
	{Name: "PlayStation Plus", Category: CategoryGames, Patterns: []string{`playstation`, `sony\s*interactive`}, TypicalPrice: 850, Billing: BillingMonthly},
	{Name: "日本経済新聞", Category: CategoryNews, Patterns: []string{`日経電子版`, `日本経済新聞`, `nikkei`}, TypicalPrice: 4277, Billing: BillingMonthly},
	{Name: "Uber Eats", Category: CategoryFood, Patterns: []string{`uber\s*eats`, `ウーバーイーツ`}},
	{Name: "出前館", Category: CategoryFood, Patterns: []string{`出前館`, `demae-?can`}},
	{Name: "Uber", Category: CategoryTransport, Patterns: []string{`^uber$`, `uber\s*trip`}},
	{Name: "スターバックス", Category: CategoryCafe, Patterns: []string{`スターバックス`, `starbucks`}, Aliases: []string{"スタバ"}},
	{Name: "ドトール", Category: CategoryCafe, Patterns: []string{`ドトール`, `doutor`}},
	{Name: "セブン-イレブン", Category: CategoryConvenience, Patterns: []string{`セブン-?イレブン`, `7-?eleven`, `seven\s*eleven`}},
	{Name: "ローソン", Category: CategoryConvenience, Patterns: []string{`ローソン`, `lawson`}},
	{Name: "ファミリーマート", Category: CategoryConvenience, Patterns: []string{`ファミリーマート`, `familymart`}, Aliases: []string{"ファミマ"}},
	{Name: "モバイルSuica", Category: CategoryTransport, Patterns: []string{`suica`, `スイカ`}},
	{Name: "JR東日本", Category: CategoryTransport, Patterns: []string{`jr東日本`, `えきねっと`}},
	{Name: "楽天市場", Category: CategoryShopping, Patterns: []string{`楽天市場`, `rakuten\s*ichiba`}},
	{Name: "メルカリ", Category: CategoryShopping, Patterns: []string{`メルカリ`, `mercari`}},
	{Name: "ヨドバシカメラ", Category: CategoryShopping, Patterns: []string{`ヨドバシ`, `yodobashi`}},
	{Name: "NTTドコモ", Category: CategoryTelecom, Patterns: []string{`ドコモ`, `docomo`}, TypicalPrice: 7000, Billing: BillingMonthly},
	{Name: "ソフトバンク", Category: CategoryTelecom, Patterns: []string{`ソフトバンク`, `softbank`}, TypicalPrice: 7000, Billing: BillingMonthly},
	{Name: "au", Category: CategoryTelecom, Patterns: []string{`^au$`, `kddi`}, TypicalPrice: 7000, Billing: BillingMonthly},
	{Name: "東京電力", Category: CategoryUtilities, Patterns: []string{`東京電力`, `tepco`}, Billing: BillingMonthly},
	{Name: "東京ガス", Category: CategoryUtilities, Patterns: []string{`東京ガス`, `tokyo\s*gas`}, Billing: BillingMonthly},
	{Name: "じゃらん", Category: CategoryTravel, Patterns: []string{`じゃらん`, `jalan`}},
	{Name: "ANA", Category: CategoryTravel, Patterns: []string{`全日空`, `^ana$`, `ana\s*mileage`}},
	{Name: "JAL", Category: CategoryTravel, Patterns: []string{`日本航空`, `^jal$`}},
}
