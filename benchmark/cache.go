// Package benchmark implements the Benchmark Cache: a
// content-addressed store mapping normalized channel identifiers to
// precomputed analysis reports, so re-analyzing a channel is opt-in.
package benchmark

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/kadirpekel/studioforge/errs"
)

// Report is the persisted analysis record for one set of benchmarked
// channels.
type Report struct {
	AnalyzedChannels    []string          `json:"analyzed_channels"`
	AnalyzedVideoCount  int               `json:"analyzed_videos_count"`
	ChannelConcept      string            `json:"channel_concept"`
	USP                 string            `json:"unique_selling_point"`
	BrandVoice          string            `json:"brand_voice"`
	ThumbnailPattern    ThumbnailPattern  `json:"thumbnail_pattern"`
	ScriptPattern       ScriptPattern     `json:"script_pattern"`
	ContentStrategy     ContentStrategy   `json:"content_strategy"`
	AudienceProfile     AudienceProfile   `json:"audience_profile"`
	ReplicationGuide    ReplicationGuide  `json:"replication_guide"`
}

type ThumbnailPattern struct {
	ColorPalette    []string `json:"color_palette"`
	TextStyle       string   `json:"text_style"`
	FaceExpression  string   `json:"face_expression"`
	LayoutStyle     string   `json:"layout_style"`
	CommonElements  []string `json:"common_elements"`
	Summary         string   `json:"summary"`
}

type ScriptPattern struct {
	HookStyle        string   `json:"hook_style"`
	Structure        string   `json:"structure"`
	ToneAndVoice     string   `json:"tone_and_voice"`
	RecurringPhrases []string `json:"recurring_phrases"`
	CTAPatterns      []string `json:"cta_patterns"`
	AverageLength    string   `json:"average_length"`
	Summary          string   `json:"summary"`
}

type ContentStrategy struct {
	ContentPillars    []string `json:"content_pillars"`
	UploadFrequency   string   `json:"upload_frequency"`
	VideoLengthPattern string  `json:"video_length_pattern"`
	TrendingTopics    []string `json:"trending_topics"`
	EngagementTactics []string `json:"engagement_tactics"`
	Summary           string   `json:"summary"`
}

type AudienceProfile struct {
	Demographics        string   `json:"demographics"`
	Interests           []string `json:"interests"`
	PainPoints          []string `json:"pain_points"`
	ContentPreferences  string   `json:"content_preferences"`
	Summary             string   `json:"summary"`
}

type ReplicationGuide struct {
	ChannelSetup      map[string]any `json:"channel_setup"`
	ContentPlanning   map[string]any `json:"content_planning"`
	ThumbnailGuide    map[string]any `json:"thumbnail_guide"`
	ScriptTemplate    map[string]any `json:"script_template"`
	EngagementStrategy map[string]any `json:"engagement_strategy"`
	First10Videos     []string       `json:"first_10_videos"`
}

// CacheEntry is the full persisted file for one cache key.
type CacheEntry struct {
	CacheKey       string   `json:"cache_key"`
	ChannelURLs    []string `json:"channel_urls"`
	NormalizedURLs []string `json:"normalized_urls"`
	CreatedAt      string   `json:"created_at"`
	UpdatedAt      string   `json:"updated_at"`
	Report         Report   `json:"report"`
}

type indexEntry struct {
	ChannelURL    string `json:"channel_url"`
	NormalizedURL string `json:"normalized_url"`
	CacheKey      string `json:"cache_key"`
	UpdatedAt     string `json:"updated_at"`
}

// Cache is the filesystem-backed benchmark cache.
type Cache struct {
	dir string
	now func() time.Time
}

// New builds a Cache rooted at dir (typically pathpolicy.BenchmarkCacheDir()).
func New(dir string) *Cache {
	return &Cache{dir: dir, now: time.Now}
}

// CacheKey is the 16-hex-character truncated MD5 of the sorted,
// pipe-joined normalized identifiers for a set of URLs.
func CacheKey(urls []string) string {
	normalized := make([]string, len(urls))
	for i, u := range urls {
		normalized[i] = NormalizeChannelURL(u)
	}
	sort.Strings(normalized)
	sum := md5.Sum([]byte(strings.Join(normalized, "|")))
	return hex.EncodeToString(sum[:])[:16]
}

// singleKey is the MD5 of a single normalized identifier, used for the
// per-URL index lookup.
func singleKey(url string) string {
	sum := md5.Sum([]byte(NormalizeChannelURL(url)))
	return hex.EncodeToString(sum[:])[:16]
}

func (c *Cache) reportPath(key string) string { return filepath.Join(c.dir, key+".json") }
func (c *Cache) indexPath(key string) string  { return filepath.Join(c.dir, "index_"+key+".json") }

// Save stores report under the key derived from urls, plus a per-URL
// index entry for each URL, overwriting any existing index entries.
func (c *Cache) Save(urls []string, report Report) (string, error) {
	if len(urls) == 0 {
		return "", errs.New(errs.UserInputError, "benchmark.save", "no channel URLs given", nil)
	}
	key := CacheKey(urls)
	now := c.now().Format(time.RFC3339)

	normalized := make([]string, len(urls))
	for i, u := range urls {
		normalized[i] = NormalizeChannelURL(u)
	}

	entry := CacheEntry{
		CacheKey:       key,
		ChannelURLs:    urls,
		NormalizedURLs: normalized,
		CreatedAt:      now,
		UpdatedAt:      now,
		Report:         report,
	}
	if existing, err := c.readEntry(key); err == nil {
		entry.CreatedAt = existing.CreatedAt
	}

	if err := c.writeJSON(c.reportPath(key), entry); err != nil {
		return "", err
	}

	for _, u := range urls {
		idx := indexEntry{
			ChannelURL:    u,
			NormalizedURL: NormalizeChannelURL(u),
			CacheKey:      key,
			UpdatedAt:     now,
		}
		if err := c.writeJSON(c.indexPath(singleKey(u)), idx); err != nil {
			return "", err
		}
	}
	return key, nil
}

// Find looks up the single-URL index, then loads the referenced report.
// It returns (nil, nil) on a cache miss rather than an error, so callers
// can treat "never benchmarked" and "benchmarked" as the only two cases.
func (c *Cache) Find(channelURL string) (*CacheEntry, error) {
	var idx indexEntry
	if err := c.readJSON(c.indexPath(singleKey(channelURL)), &idx); err != nil {
		// a missing or corrupt sibling index is a cache miss, not an error.
		return nil, nil
	}
	entry, err := c.readEntry(idx.CacheKey)
	if err != nil {
		return nil, nil
	}
	return entry, nil
}

// Delete removes the report file and its index entry for a single URL.
func (c *Cache) Delete(channelURL string) (bool, error) {
	idxPath := c.indexPath(singleKey(channelURL))
	var idx indexEntry
	if err := c.readJSON(idxPath, &idx); err != nil {
		return false, nil
	}
	_ = os.Remove(c.reportPath(idx.CacheKey))
	if err := os.Remove(idxPath); err != nil && !os.IsNotExist(err) {
		return false, errs.New(errs.ResourceError, "benchmark.delete", channelURL, err)
	}
	return true, nil
}

// RebuildIndex rewrites every per-URL index entry from the report files
// themselves, for recovery after a partial write left index entries
// stale or missing.
func (c *Cache) RebuildIndex() (int, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, errs.New(errs.ResourceError, "benchmark.rebuild_index", c.dir, err)
	}
	count := 0
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, "index_") || !strings.HasSuffix(name, ".json") {
			continue
		}
		var entry CacheEntry
		if err := c.readJSON(filepath.Join(c.dir, name), &entry); err != nil {
			continue
		}
		for _, u := range entry.ChannelURLs {
			idx := indexEntry{
				ChannelURL:    u,
				NormalizedURL: NormalizeChannelURL(u),
				CacheKey:      entry.CacheKey,
				UpdatedAt:     c.now().Format(time.RFC3339),
			}
			if err := c.writeJSON(c.indexPath(singleKey(u)), idx); err == nil {
				count++
			}
		}
	}
	return count, nil
}

// Summary formats the short display string shown on a cache hit: channel
// names (with a leading "@" stripped), timestamp, and a 100-char concept
// excerpt.
func Summary(entry *CacheEntry) string {
	names := make([]string, len(entry.NormalizedURLs))
	for i, n := range entry.NormalizedURLs {
		names[i] = strings.TrimPrefix(n, "@")
	}
	dateStr := entry.CreatedAt
	if t, err := time.Parse(time.RFC3339, entry.CreatedAt); err == nil {
		dateStr = t.Format("2006년 01월 02일 15:04")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**이미 벤치마킹된 채널입니다!**\n\n")
	fmt.Fprintf(&b, "**채널:** %s\n", strings.Join(names, ", "))
	fmt.Fprintf(&b, "**분석 일시:** %s\n", dateStr)

	if concept := entry.Report.ChannelConcept; len(concept) > 10 {
		excerpt := concept
		if r := []rune(excerpt); len(r) > 100 {
			excerpt = string(r[:100])
		}
		fmt.Fprintf(&b, "\n**컨셉:** %s...", excerpt)
	}
	b.WriteString("\n\n• **기존 결과 사용:** '확인' 또는 '다음'\n• **새로 분석:** '업데이트' 또는 '다시 분석'")
	return b.String()
}

// ReanalyzeKeywords are the tokens that opt out of a cache hit.
var ReanalyzeKeywords = []string{"다시 분석", "재분석", "업데이트", "update", "reanalyze"}

// WantsReanalyze reports whether text asks for a fresh analysis instead
// of accepting the cache hit.
func WantsReanalyze(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range ReanalyzeKeywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

func (c *Cache) readEntry(key string) (*CacheEntry, error) {
	var entry CacheEntry
	if err := c.readJSON(c.reportPath(key), &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (c *Cache) writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errs.New(errs.ResourceError, "benchmark.write", path, err)
	}
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errs.New(errs.InvariantViolation, "benchmark.write", path, err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return errs.New(errs.ResourceError, "benchmark.write", path, err)
	}
	return nil
}

func (c *Cache) readJSON(path string, v any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}
