package session

import "testing"

func TestPresetFor(t *testing.T) {
	if cfg := PresetFor("notification"); !cfg.CompactHeader || cfg.ShowBookmark {
		t.Fatalf("неожиданный пресет уведомлений: %+v", cfg)
	}
	if cfg := PresetFor("unknown"); !cfg.ShowComments || !cfg.ShowBookmark {
		t.Fatalf("неизвестный контекст должен получать пресет ленты: %+v", cfg)
	}
}

func TestMergeOverridesOnlyNamedFields(t *testing.T) {
	defaults := PresetFor("feed")
	hide := false
	limit := 10

	merged := Merge(defaults, CardOverrides{ShowComments: &hide, CommentLimit: &limit})

	if merged.ShowComments {
		t.Fatalf("переопределение не применилось")
	}
	if merged.CommentLimit != 10 {
		t.Fatalf("ожидали лимит 10, получили %d", merged.CommentLimit)
	}
	if !merged.ShowBookmark || !merged.ShowEditMenu {
		t.Fatalf("непереопределённые поля изменились: %+v", merged)
	}
	if !defaults.ShowComments {
		t.Fatalf("исходный пресет изменён")
	}
}

func TestMergeEmptyOverridesKeepsDefaults(t *testing.T) {
	defaults := PresetFor("saved")
	if merged := Merge(defaults, CardOverrides{}); merged != defaults {
		t.Fatalf("пустые переопределения изменили конфиг: %+v", merged)
	}
}
