package session

// CardConfig задаёт поведение карточки записи в конкретном контексте
// отображения. Вместо слияния произвольных объектов — именованные
// поля и чистая функция слияния.
type CardConfig struct {
	ShowComments  bool `json:"show_comments"`
	ShowBookmark  bool `json:"show_bookmark"`
	ShowEditMenu  bool `json:"show_edit_menu"`
	CompactHeader bool `json:"compact_header"`
	CommentLimit  int  `json:"comment_limit"`
}

// CardOverrides — частичные переопределения пресета. Нулевой
// указатель означает «оставить значение пресета».
type CardOverrides struct {
	ShowComments  *bool `json:"show_comments,omitempty"`
	ShowBookmark  *bool `json:"show_bookmark,omitempty"`
	ShowEditMenu  *bool `json:"show_edit_menu,omitempty"`
	CompactHeader *bool `json:"compact_header,omitempty"`
	CommentLimit  *int  `json:"comment_limit,omitempty"`
}

// PresetFor возвращает пресет карточки для контекста отображения.
// Неизвестный контекст получает пресет ленты.
func PresetFor(context string) CardConfig {
	switch context {
	case "notification":
		return CardConfig{ShowComments: true, ShowBookmark: false, ShowEditMenu: true, CompactHeader: true, CommentLimit: 3}
	case "profile":
		return CardConfig{ShowComments: false, ShowBookmark: true, ShowEditMenu: true, CommentLimit: 3}
	case "saved":
		return CardConfig{ShowComments: true, ShowBookmark: true, ShowEditMenu: false, CommentLimit: 3}
	default:
		return CardConfig{ShowComments: true, ShowBookmark: true, ShowEditMenu: true, CommentLimit: 3}
	}
}

// Merge накладывает переопределения на пресет и возвращает итоговую
// конфигурацию. Аргументы не изменяются.
func Merge(defaults CardConfig, overrides CardOverrides) CardConfig {
	merged := defaults
	if overrides.ShowComments != nil {
		merged.ShowComments = *overrides.ShowComments
	}
	if overrides.ShowBookmark != nil {
		merged.ShowBookmark = *overrides.ShowBookmark
	}
	if overrides.ShowEditMenu != nil {
		merged.ShowEditMenu = *overrides.ShowEditMenu
	}
	if overrides.CompactHeader != nil {
		merged.CompactHeader = *overrides.CompactHeader
	}
	if overrides.CommentLimit != nil {
		merged.CommentLimit = *overrides.CommentLimit
	}
	return merged
}
