package selector

import (
	"strings"
	"testing"

	"github.com/antchfx/htmlquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"selenex/internal/dom"
	"selenex/internal/fingerprint"
	"selenex/internal/models"
)

func str(s string) *string { return &s }

func TestIsDynamicID(t *testing.T) {
	tests := []struct {
		id      string
		dynamic bool
	}{
		{"", false},
		{"submit", false},
		{"btn1", false},
		{"ember123456", true},
		{"react-select-2-input", true},
		{"vid-123456789", false},
		{"card-prj-0000000001", false},
		{"averylongidentifier", false},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			assert.Equal(t, tt.dynamic, IsDynamicID(tt.id))
		})
	}
}

func TestBestLocatorPriority(t *testing.T) {
	tests := []struct {
		name string
		ctx  models.ElementContext
		want Locator
	}{
		{
			name: "test id beats everything",
			ctx:  models.ElementContext{Tag: "BUTTON", Attributes: models.Attributes{DataTestID: str("save"), ID: str("save-btn")}},
			want: Locator{Strategy: ByCSS, Value: "[data-testid='save']"},
		},
		{
			name: "stable id",
			ctx:  models.ElementContext{Tag: "BUTTON", Attributes: models.Attributes{ID: str("go")}},
			want: Locator{Strategy: ByID, Value: "go"},
		},
		{
			name: "dynamic id skipped for input name",
			ctx:  models.ElementContext{Tag: "INPUT", Attributes: models.Attributes{ID: str("input-83726151"), Name: str("email")}},
			want: Locator{Strategy: ByName, Value: "email"},
		},
		{
			name: "relative href",
			ctx:  models.ElementContext{Tag: "A", Attributes: models.Attributes{Href: str("/pricing")}, Text: str("Pricing")},
			want: Locator{Strategy: ByXPath, Value: "//a[@href='/pricing']"},
		},
		{
			name: "absolute href falls to link text",
			ctx:  models.ElementContext{Tag: "A", Attributes: models.Attributes{Href: str("https://x.test/")}, Text: str("Home")},
			want: Locator{Strategy: ByLinkText, Value: "Home"},
		},
		{
			name: "button text",
			ctx:  models.ElementContext{Tag: "BUTTON", Text: str("Sign  in")},
			want: Locator{Strategy: ByXPath, Value: "//button[normalize-space()='Sign in']"},
		},
		{
			name: "parent id",
			ctx: models.ElementContext{Tag: "INPUT", ParentChain: []models.ParentDescriptor{
				{Tag: "DIV", ID: str("row-1234567890")},
				{Tag: "FORM", ID: str("login")},
			}},
			want: Locator{Strategy: ByXPath, Value: "//form[@id='login']//input"},
		},
		{
			name: "meaningful classes",
			ctx:  models.ElementContext{Tag: "DIV", Attributes: models.Attributes{Class: str("wds-x card hover:bg primary")}},
			want: Locator{Strategy: ByCSS, Value: "div.card.primary"},
		},
		{
			name: "placeholder",
			ctx:  models.ElementContext{Tag: "TEXTAREA", Attributes: models.Attributes{Placeholder: str("Say hi")}},
			want: Locator{Strategy: ByXPath, Value: "//textarea[@placeholder='Say hi']"},
		},
		{
			name: "bare tag",
			ctx:  models.ElementContext{Tag: "SELECT"},
			want: Locator{Strategy: ByCSS, Value: "select"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Best(&tt.ctx)
			require.True(t, ok)
			assert.Equal(t, tt.want.Strategy, got.Strategy)
			assert.Equal(t, tt.want.Value, got.Value)
			assert.NotEmpty(t, got.XPath)
		})
	}
}

func TestRankEndsWithTag(t *testing.T) {
	ranked := Rank(&models.ElementContext{Tag: "BUTTON", Text: str("Go"), Attributes: models.Attributes{ID: str("go")}})
	require.Len(t, ranked, 3)
	assert.Equal(t, "//button", ranked[len(ranked)-1].XPath)

	assert.Nil(t, Rank(nil))
	_, ok := Best(nil)
	assert.False(t, ok)
}

func TestLiteral(t *testing.T) {
	assert.Equal(t, "'plain'", Literal("plain"))
	assert.Equal(t, `"it's"`, Literal("it's"))
	assert.Equal(t, `concat('say "it', "'", 's"')`, Literal(`say "it's"`))

	doc, err := htmlquery.Parse(strings.NewReader(`<p title='say "it&#39;s"'>x</p>`))
	require.NoError(t, err)
	n := htmlquery.FindOne(doc, "//p[@title="+Literal(`say "it's"`)+"]")
	assert.NotNil(t, n)
}

const recordedPage = `<html><body>
<header id="top"><a href="/pricing">Pricing</a></header>
<form id="login">
	<input id="input-83726151" name="email">
	<button class="btn primary">Sign in</button>
	<button class="btn">Cancel</button>
</form>
</body></html>`

const redesignedPage = `<html><body>
<nav><a class="link" href="/pricing">Plans &amp; pricing</a></nav>
<main><form id="login">
	<label>Email <input id="input-99182733" name="email" placeholder="you@x.test"></label>
	<button class="btn btn-lg primary">Sign in</button>
</form></main>
</body></html>`

func contextAt(t *testing.T, page string, path []int) *models.ElementContext {
	t.Helper()
	doc, err := dom.ParseString(page)
	require.NoError(t, err)
	n, err := dom.NodeAtPath(doc, path)
	require.NoError(t, err)
	return fingerprint.CaptureElementContext(n, fingerprint.DefaultMaxDepth)
}

func TestRelocateAcrossRedesign(t *testing.T) {
	doc, err := dom.ParseString(redesignedPage)
	require.NoError(t, err)

	email := contextAt(t, recordedPage, []int{1, 1, 0})
	n, loc, err := Relocate(doc, email)
	require.NoError(t, err)
	assert.Equal(t, ByName, loc.Strategy)
	assert.Equal(t, "you@x.test", htmlquery.SelectAttr(n, "placeholder"))

	signIn := contextAt(t, recordedPage, []int{1, 1, 1})
	n, loc, err = Relocate(doc, signIn)
	require.NoError(t, err)
	assert.Equal(t, "//button[normalize-space()='Sign in']", loc.XPath)
	assert.Equal(t, "button", n.Data)

	pricing := contextAt(t, recordedPage, []int{1, 0, 0})
	n, loc, err = Relocate(doc, pricing)
	require.NoError(t, err)
	assert.Equal(t, "//a[@href='/pricing']", loc.XPath)
	assert.Equal(t, "link", htmlquery.SelectAttr(n, "class"))
}

func TestRelocateMiss(t *testing.T) {
	doc, err := dom.ParseString(`<html><body><div>nothing</div><div>here</div></body></html>`)
	require.NoError(t, err)

	_, _, err = Relocate(doc, &models.ElementContext{Tag: "BUTTON", Attributes: models.Attributes{ID: str("go")}})
	assert.ErrorIs(t, err, ErrNotRelocated)

	_, _, err = Relocate(doc, &models.ElementContext{Tag: "DIV"})
	assert.ErrorIs(t, err, ErrNotRelocated, "ambiguous matches do not count")
}
