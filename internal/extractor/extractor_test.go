package extractor

import (
	"testing"

	"github.com/snapit/price-scraper/internal/adapter"
	"github.com/snapit/price-scraper/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractZeptoFullCard(t *testing.T) {
	e := ForPlatform(models.PlatformZepto)

	block := adapter.Block{
		Text: "Amul Salted Butter\n500 g\n₹285\nADD",
		HTML: `<a href="/pn/amul-salted-butter/pvid/1234">
			<img src="https://cdn.zeptonow.com/amul.jpg"/>
			<h5>Amul Salted Butter</h5>
			<p>500 g</p>
			<span>₹285</span>
		</a>`,
		Attrs: map[string]string{"href": "/pn/amul-salted-butter/pvid/1234"},
	}

	rec, ok := e.Extract(block, "butter")
	require.True(t, ok)

	assert.Equal(t, "butter", rec.SearchTerm)
	assert.Equal(t, "Amul Salted Butter", rec.ProductName)
	assert.Equal(t, "₹285", rec.Price)
	assert.Equal(t, "500 g", rec.Quantity)
	assert.Equal(t, models.PlatformZepto, rec.Platform)
	require.NotNil(t, rec.URL)
	assert.Equal(t, "https://www.zeptonow.com/pn/amul-salted-butter/pvid/1234", *rec.URL)
	require.NotNil(t, rec.ImageURL)
	assert.Equal(t, "https://cdn.zeptonow.com/amul.jpg", *rec.ImageURL)
}

func TestExtractDropsPricelessBlocks(t *testing.T) {
	e := ForPlatform(models.PlatformZepto)

	blocks := []adapter.Block{
		{Text: "Amul Butter\n500 g\n₹285", HTML: `<div><h5>Amul Butter</h5><span>₹285</span></div>`},
		{Text: "Loading...", HTML: `<div><h5>Loading...</h5></div>`},
		{Text: "Britannia Cheese\n200 g\n₹145", HTML: `<div><h5>Britannia Cheese</h5><span>₹145</span></div>`},
	}

	var records []models.Record
	for _, block := range blocks {
		if rec, ok := e.Extract(block, "dairy"); ok {
			records = append(records, rec)
		}
	}

	require.Len(t, records, 2)
	assert.Equal(t, "Amul Butter", records[0].ProductName)
	assert.Equal(t, "Britannia Cheese", records[1].ProductName)
	for _, rec := range records {
		assert.Equal(t, models.PlatformZepto, rec.Platform)
	}
}

func TestExtractDropsActionLabelAsName(t *testing.T) {
	e := ForPlatform(models.PlatformZepto)

	block := adapter.Block{
		Text: "ADD\n₹99",
		HTML: `<div><h5>ADD</h5><span>₹99</span></div>`,
	}

	_, ok := e.Extract(block, "milk")
	assert.False(t, ok)
}

func TestExtractNameFromSlugWhenHeadingDegenerate(t *testing.T) {
	e := ForPlatform(models.PlatformZepto)

	// The heading matched the quantity line, so the URL slug is the better
	// name source.
	block := adapter.Block{
		Text: "500 g\n₹285",
		HTML: `<div><h5>500 g</h5><span>₹285</span></div>`,
		Attrs: map[string]string{
			"href": "/pn/amul-salted-butter/pvid/9876",
		},
	}

	rec, ok := e.Extract(block, "butter")
	require.True(t, ok)
	assert.Equal(t, "amul salted butter", rec.ProductName)
	assert.Equal(t, "500 g", rec.Quantity)
}

func TestExtractTextLineFallbacks(t *testing.T) {
	e := ForPlatform(models.PlatformZepto)

	// No usable HTML: all fields come from the visible-text lines.
	block := adapter.Block{
		Text: "ADD\nFortune Sunflower Oil 1 l\n₹189",
	}

	rec, ok := e.Extract(block, "oil")
	require.True(t, ok)
	assert.Equal(t, "Fortune Sunflower Oil 1 l", rec.ProductName)
	assert.Equal(t, "₹189", rec.Price)
	assert.Equal(t, "Fortune Sunflower Oil 1 l", rec.Quantity)
	assert.Nil(t, rec.URL)
	assert.Nil(t, rec.ImageURL)
}

func TestExtractBlinkitAncestorURL(t *testing.T) {
	e := ForPlatform(models.PlatformBlinkit)

	block := adapter.Block{
		Text: "Amul Taaza Milk\n500 ml\n₹28",
		HTML: `<div><p>Amul Taaza Milk</p><div>500 ml</div><div>₹28</div></div>`,
		Ancestors: []map[string]string{
			{},
			{"data-pf": "/prn/amul-taaza-milk/prid/123"},
		},
	}

	rec, ok := e.Extract(block, "milk")
	require.True(t, ok)
	require.NotNil(t, rec.URL)
	assert.Equal(t, "https://www.blinkit.com/prn/amul-taaza-milk/prid/123", *rec.URL)
}

func TestExtractBlinkitSynthesizedSearchURL(t *testing.T) {
	e := ForPlatform(models.PlatformBlinkit)

	block := adapter.Block{
		Text: "Amul Taaza Milk\n500 ml\n₹28",
		HTML: `<div><p>Amul Taaza Milk</p><div>500 ml</div><div>₹28</div></div>`,
	}

	rec, ok := e.Extract(block, "milk")
	require.True(t, ok)
	require.NotNil(t, rec.URL)
	assert.Equal(t, "https://www.blinkit.com/s/?q=Amul+Taaza+Milk", *rec.URL)
}

func TestExtractInstamartNoURLAndFixedLocation(t *testing.T) {
	e := ForPlatform(models.PlatformInstamart)

	block := adapter.Block{
		Text:  "Daawat Basmati Rice\n1 kg\n₹180",
		HTML:  `<div><p>Daawat Basmati Rice</p><div>1 kg</div><div>₹180</div></div>`,
		Attrs: map[string]string{"href": "/instamart/item/ABC123"},
	}

	rec, ok := e.Extract(block, "rice")
	require.True(t, ok)
	assert.Nil(t, rec.URL)
	assert.Equal(t, "Bangalore", rec.Location)
	assert.Equal(t, models.PlatformInstamart, rec.Platform)
}

func TestExtractInstamartKeepsPricelessBlocks(t *testing.T) {
	e := ForPlatform(models.PlatformInstamart)

	block := adapter.Block{
		Text: "Daawat Basmati Rice\n1 kg",
		HTML: `<div><p>Daawat Basmati Rice</p><div>1 kg</div></div>`,
	}

	rec, ok := e.Extract(block, "rice")
	require.True(t, ok)
	assert.Equal(t, "", rec.Price)
}

func TestExtractImageURLSrcsetKeepsFirstToken(t *testing.T) {
	e := ForPlatform(models.PlatformZepto)

	block := adapter.Block{
		Text: "Amul Butter\n₹285",
		HTML: `<div>
			<img srcset="https://cdn.zeptonow.com/a.jpg 1x, https://cdn.zeptonow.com/a@2x.jpg 2x"/>
			<h5>Amul Butter</h5>
			<span>₹285</span>
		</div>`,
	}

	rec, ok := e.Extract(block, "butter")
	require.True(t, ok)
	require.NotNil(t, rec.ImageURL)
	assert.Equal(t, "https://cdn.zeptonow.com/a.jpg", *rec.ImageURL)
}

func TestLongestCandidateLine(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		want  string
	}{
		{
			name:  "skips action label and price lines",
			lines: []string{"ADD", "₹120", "Tata Salt Iodized", "1 kg"},
			want:  "Tata Salt Iodized",
		},
		{
			name:  "first line wins with no candidates",
			lines: []string{"₹120", "ADD"},
			want:  "₹120",
		},
		{
			name:  "tie broken by first occurrence",
			lines: []string{"abcd", "wxyz"},
			want:  "abcd",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, longestCandidateLine(tt.lines))
		})
	}
}

func TestHasUnitToken(t *testing.T) {
	assert.True(t, hasUnitToken("500 g"))
	assert.True(t, hasUnitToken("1 KG"))
	assert.True(t, hasUnitToken("Pack of 4"))
	assert.False(t, hasUnitToken("₹120"))
	assert.False(t, hasUnitToken("ADD"))
}
