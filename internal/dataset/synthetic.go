package dataset

import (
	"fmt"
	"strings"
	"unicode"
)

// Styles are the phin playing styles known to the seed corpus.
var Styles = []string{"lam_plearn", "lam_klon", "mor_lam", "phuen_ban", "sib_song", "kratai", "kham_khuen"}

// Regions are the regions of Thailand known to the seed corpus.
var Regions = []string{"isan", "central", "northern", "southern"}

// Number of styles and regions combined by Synthetic
const (
	syntheticStyles  = 5
	syntheticRegions = 2
)

var performanceContexts = map[string]string{
	"lam_plearn": "Social dance and entertainment",
	"lam_klon":   "Poetry recitation and storytelling",
	"mor_lam":    "Ceremonial and ritual contexts",
	"phuen_ban":  "Village gatherings and festivals",
	"sib_song":   "Court and formal occasions",
	"kratai":     "Entertainment and popular music",
	"kham_khuen": "Religious and spiritual ceremonies",
}

// DefaultPerformanceContext is used for styles without a known context.
const DefaultPerformanceContext = "Traditional performance settings"

// PerformanceContext returns the typical setting a style is performed in.
func PerformanceContext(style string) string {
	if ctx, ok := performanceContexts[style]; ok {
		return ctx
	}
	return DefaultPerformanceContext
}

// Synthetic returns the seed corpus used when no recordings have been
// processed yet: three fixed documents followed by one description per
// combination of the first five styles and the first two regions.
func Synthetic() []Record {
	records := make([]Record, 0, len(seedDocuments)+syntheticStyles*syntheticRegions)
	records = append(records, seedDocuments...)

	for _, style := range Styles[:syntheticStyles] {
		for _, region := range Regions[:syntheticRegions] {
			records = append(records, Record{
				Text: describeStyle(style, region),
				Metadata: map[string]any{
					"style":      style,
					"region":     region,
					"instrument": "phin",
				},
			})
		}
	}

	return records
}

func describeStyle(style, region string) string {
	return fmt.Sprintf(`Thai Phin Music - %s Style (%s Region):

This recording showcases the %s style of phin music from %s Thailand. The performance exemplifies regional variations in tempo, ornamentation, and rhythmic patterns characteristic of %s musical traditions.

Style characteristics:
- Name: %s
- Region: %s
- Typical tempo: 100-140 BPM
- Rhythmic pattern: Traditional %s meter
- Performance context: %s

Musical analysis:
The audio demonstrates %s-specific phin techniques and tonal preferences. Spectral analysis reveals frequency content and timing patterns unique to this regional style.

Cultural significance:
This style represents important intangible cultural heritage of %s Thailand, passed down through oral tradition and community practice.`,
		titleCase(style), titleCase(region),
		style, region, region,
		style, region, region, PerformanceContext(style),
		region,
		region)
}

// titleCase upper-cases every letter that follows a non-letter:
// "lam_plearn" becomes "Lam_Plearn".
func titleCase(s string) string {
	var (
		sb   strings.Builder
		prev rune
	)

	for i, r := range s {
		if i == 0 || !unicode.IsLetter(prev) {
			sb.WriteRune(unicode.ToUpper(r))
		} else {
			sb.WriteRune(unicode.ToLower(r))
		}
		prev = r
	}
	return sb.String()
}

var seedDocuments = []Record{
	{
		Text: `Thai Phin Music Analysis:
This recording features traditional Isan phin music in the style of 'ลายลำเพลิน' (Lam Plearn). The tempo is approximately 120 BPM, typical for social dance music in Northeastern Thailand. The phin player demonstrates skilled technique with rapid picking and precise timing.

Musical characteristics:
- Scale: Pentatonic (5-tone) system
- Rhythm: 4/4 time signature
- Tempo: 120 BPM
- Style: Lam Plearn (social dance)
- Region: Isan (Northeastern Thailand)

Cultural context:
This style is commonly performed at village gatherings and festivals. The phin serves as both melodic and rhythmic foundation, often accompanied by khaen (bamboo mouth organ) and drums.`,
		Metadata: map[string]any{"style": "lam_plearn", "region": "isan", "instrument": "phin"},
	},
	{
		Text: `Phin Transcription Notes:
Audio file: phin_lam_plearn_001.wav
Duration: 45.2 seconds
Quality: High (minimal background noise)

Detected notes: ซ-ร-ม-ฟ-ซ-ล-ท (Thai notation)
Western equivalent: G-A-B-C-D-E-F#

Performance analysis:
The musician demonstrates traditional Isan phin techniques including rapid tremolo and precise picking control. The performance maintains consistent tempo throughout, suitable for dance accompaniment.

Transcription confidence: 85%`,
		Metadata: map[string]any{"transcription_confidence": 0.85, "duration": 45.2, "quality": "high"},
	},
	{
		Text: `Thai Phin Technical Notes:

Audio processing recommendations:
1. Sample rate: 44.1 kHz or higher
2. Bit depth: 16-bit minimum
3. Format: WAV for archival, FLAC for distribution
4. Normalization: -3 dB peak
5. Noise reduction: Gentle high-pass filter at 50 Hz

Machine learning applications:
- Onset detection: Use spectral flux with adaptive threshold
- Pitch detection: Harmonic product spectrum or YIN algorithm
- Dataset size: Minimum 100 recordings per style for robust training

Cultural considerations:
Always credit traditional musicians and communities when using recordings for research or commercial applications.`,
		Metadata: map[string]any{"instrument": "phin", "application": "ml_training", "tuning": "thai"},
	},
}
