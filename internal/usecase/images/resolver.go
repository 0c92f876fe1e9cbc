package images

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Kind — разновидность изображения, определяющая цепочку кандидатов.
type Kind string

const (
	KindCharacter Kind = "character"
	KindItem      Kind = "item"
	KindAvatar    Kind = "avatar"
)

// PlaceholderAnime — заглушка для обложек и персонажей.
const PlaceholderAnime = "/placeholder-anime.svg"

var (
	extRe           = regexp.MustCompile(`(?i)\.(png|jpg|jpeg|webp|gif)(\?|$)`)
	characterPathRe = regexp.MustCompile(`/characters/(\d+)\.`)
	anilistIDRe     = regexp.MustCompile(`/b(\d+)-`)
)

// Resolver строит упорядоченные списки кандидатов URL изображений.
// Стратегия R2-first: сначала собственное хранилище, затем внешний
// URL, в конце заглушка. Потребитель пробует кандидатов по порядку.
type Resolver struct {
	APIBaseURL   string
	ImageBaseURL string
}

// NewResolver создаёт резолвер для заданных базовых URL.
func NewResolver(apiBaseURL, imageBaseURL string) Resolver {
	return Resolver{
		APIBaseURL:   strings.TrimRight(apiBaseURL, "/"),
		ImageBaseURL: strings.TrimRight(imageBaseURL, "/"),
	}
}

// Resolve возвращает кандидатов для изображения данного вида.
// Для аватара пустой rawURL даёт пустой список: рендер подставит
// градиентную заглушку сам.
func (r Resolver) Resolve(kind Kind, rawURL string, entityID int64) []string {
	switch kind {
	case KindCharacter:
		return dedupe(r.character(rawURL, entityID))
	case KindItem:
		return dedupe(r.item(rawURL, entityID))
	case KindAvatar:
		return dedupe(r.avatar(rawURL, entityID))
	default:
		return []string{PlaceholderAnime}
	}
}

func (r Resolver) character(rawURL string, characterID int64) []string {
	var candidates []string

	switch {
	case rawURL != "" && r.ImageBaseURL != "" && strings.Contains(rawURL, r.ImageBaseURL):
		// Ранее загруженное в R2 изображение используется как есть.
		candidates = append(candidates, rawURL)
	case characterID != 0:
		ext := extensionOf(rawURL)
		candidates = append(candidates, r.r2Character(characterID, ext))
		if alt := alternateExtension(ext); alt != "" {
			candidates = append(candidates, r.r2Character(characterID, alt))
		}
		if strings.HasPrefix(rawURL, "http") {
			candidates = append(candidates, rawURL)
		}
	case isAniListCharacter(rawURL):
		if match := anilistIDRe.FindStringSubmatch(rawURL); match != nil {
			ext := extensionOf(rawURL)
			candidates = append(candidates, fmt.Sprintf("%s/images/characters/%s.%s", r.ImageBaseURL, match[1], ext))
		}
		candidates = append(candidates, rawURL)
	case rawURL != "":
		if strings.HasPrefix(rawURL, "http") {
			candidates = append(candidates, rawURL)
		} else {
			candidates = append(candidates, r.ImageBaseURL+ensureLeadingSlash(rawURL))
		}
	}

	return append(candidates, PlaceholderAnime)
}

func (r Resolver) item(rawURL string, characterID int64) []string {
	if rawURL == "" {
		return []string{PlaceholderAnime}
	}
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = ensureLeadingSlash(rawURL)
	}

	var candidates []string
	switch {
	case strings.Contains(rawURL, "/characters/"):
		id := characterID
		if match := characterPathRe.FindStringSubmatch(rawURL); match != nil {
			id = parseID(match[1])
		}
		if id != 0 {
			candidates = append(candidates, fmt.Sprintf("%s/api/images/characters/%d.jpg", r.APIBaseURL, id))
		}
	case isAniListCharacter(rawURL):
		return r.character(rawURL, characterID)
	case !strings.HasPrefix(rawURL, "http"):
		candidates = append(candidates, r.ImageBaseURL+rawURL)
	case strings.Contains(rawURL, "anilist.co") && strings.Contains(rawURL, "/large/"):
		// Средний размер грузится быстрее; оригинал остаётся запасным.
		candidates = append(candidates, strings.Replace(rawURL, "/large/", "/medium/", 1), rawURL)
	default:
		candidates = append(candidates, rawURL)
	}

	return append(candidates, PlaceholderAnime)
}

func (r Resolver) avatar(rawURL string, characterID int64) []string {
	if rawURL == "" {
		return nil
	}
	if strings.HasPrefix(rawURL, "http") {
		if characterID != 0 {
			return []string{r.r2Character(characterID, "jpg"), rawURL}
		}
		return []string{rawURL}
	}
	if strings.HasPrefix(rawURL, "/uploads") {
		return []string{r.APIBaseURL + rawURL}
	}
	return []string{r.ImageBaseURL + ensureLeadingSlash(rawURL)}
}

func (r Resolver) r2Character(characterID int64, ext string) string {
	return fmt.Sprintf("%s/images/characters/%d.%s", r.ImageBaseURL, characterID, ext)
}

func extensionOf(rawURL string) string {
	if match := extRe.FindStringSubmatch(rawURL); match != nil {
		return strings.ToLower(match[1])
	}
	return "jpg"
}

func alternateExtension(ext string) string {
	switch ext {
	case "jpg":
		return "png"
	case "png":
		return "jpg"
	default:
		return ""
	}
}

func isAniListCharacter(rawURL string) bool {
	return strings.Contains(rawURL, "anilist.co") && strings.Contains(rawURL, "/character/")
}

func ensureLeadingSlash(rawURL string) string {
	if strings.HasPrefix(rawURL, "/") {
		return rawURL
	}
	return "/" + rawURL
}

func parseID(raw string) int64 {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return id
}

func dedupe(candidates []string) []string {
	seen := make(map[string]bool, len(candidates))
	result := candidates[:0]
	for _, candidate := range candidates {
		if candidate == "" || seen[candidate] {
			continue
		}
		seen[candidate] = true
		result = append(result, candidate)
	}
	return result
}
