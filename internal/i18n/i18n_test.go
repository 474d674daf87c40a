package i18n

import "testing"

func TestNewFallsBackToEnglish(t *testing.T) {
	zh := New("zh-CN")
	if got := zh.T("chat.fallback"); got != "抱歉，由于网络波动，我暂时无法响应。请稍后再试。" {
		t.Fatalf("zh chat.fallback=%q", got)
	}

	fr := New("fr_FR")
	if fr.Locale() != "fr-FR" {
		t.Fatalf("Locale()=%q, want fr-FR", fr.Locale())
	}
	if got := fr.T("view.feed"); got != "Feed" {
		t.Fatalf("unsupported locale should use English, got %q", got)
	}
}

func TestTranslate(t *testing.T) {
	en := New("en")
	cases := []struct {
		key  string
		args []any
		want string
	}{
		{"view.planning", nil, "Planning"},
		{"error.gateway", []any{"timeout"}, "AI request failed: timeout"},
		{"fragment.count", []any{3}, "3 fragments"},
		{"no.such.key", nil, "no.such.key"},
	}
	for _, tc := range cases {
		if got := en.T(tc.key, tc.args...); got != tc.want {
			t.Errorf("T(%q)=%q, want %q", tc.key, got, tc.want)
		}
	}
}

func TestNormalizeLocale(t *testing.T) {
	cases := map[string]string{
		"en_US.UTF-8": LocaleEN,
		"zh_CN.UTF-8": LocaleZhCN,
		"zh_TW":       LocaleZhCN,
		"ZH":          LocaleZhCN,
		"":            LocaleEN,
		"fr_FR":       "fr-FR",
	}
	for in, want := range cases {
		if got := normalizeLocale(in); got != want {
			t.Errorf("normalizeLocale(%q)=%q, want %q", in, got, want)
		}
	}
}

func TestDetectLocale(t *testing.T) {
	t.Setenv("LUMINA_LANG", "")
	t.Setenv("LC_ALL", "C")
	t.Setenv("LC_MESSAGES", "")
	t.Setenv("LANG", "zh_CN.UTF-8")
	if got := DetectLocale(); got != LocaleZhCN {
		t.Fatalf("DetectLocale()=%q, want zh-CN", got)
	}

	t.Setenv("LUMINA_LANG", "en")
	if got := DetectLocale(); got != LocaleEN {
		t.Fatalf("LUMINA_LANG should win, got %q", got)
	}
}

func TestCatalogsHaveSameKeys(t *testing.T) {
	for k := range EnMessages {
		if _, ok := ZhCNMessages[k]; !ok {
			t.Errorf("zh-CN catalog missing %q", k)
		}
	}
	for k := range ZhCNMessages {
		if _, ok := EnMessages[k]; !ok {
			t.Errorf("en catalog missing %q", k)
		}
	}
}

func TestInitSwitchesGlobal(t *testing.T) {
	Init("zh-CN")
	t.Cleanup(func() { Init("en") })
	if Global() != Global() {
		t.Fatal("Global should be stable between Init calls")
	}
	if got := T("view.feed"); got != "碎片流" {
		t.Fatalf("T(view.feed)=%q", got)
	}
}
