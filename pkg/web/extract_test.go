package web

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractText(t *testing.T) {
	page := []byte(`<!DOCTYPE html>
<html>
<head>
  <title>Solar Energy   Report</title>
  <style>body { color: red; }</style>
  <script>var tracking = "evil";</script>
</head>
<body>
  <h1>Adoption is rising</h1>
  <p>Global solar capacity
     doubled between 2020 and 2023.</p>
  <noscript>Please enable JavaScript.</noscript>
  <template><span>hidden widget</span></template>
  <div>Prices for panels <b>fell</b> sharply.</div>
</body>
</html>`)

	title, text := ExtractText(page)

	assert.Equal(t, "Solar Energy Report", title, "title whitespace is normalized")
	assert.Contains(t, text, "Adoption is rising")
	assert.Contains(t, text, "Global solar capacity doubled between 2020 and 2023.")
	assert.Contains(t, text, "Prices for panels fell sharply.")
	assert.NotContains(t, text, "tracking")
	assert.NotContains(t, text, "color: red")
	assert.NotContains(t, text, "enable JavaScript")
	assert.NotContains(t, text, "hidden widget")
}

func TestExtractTextMalformed(t *testing.T) {
	title, text := ExtractText([]byte(`<p>unclosed paragraph <b>bold`))
	assert.Empty(t, title)
	assert.Equal(t, "unclosed paragraph bold", text)
}

func TestExtractTextEmpty(t *testing.T) {
	title, text := ExtractText(nil)
	assert.Empty(t, title)
	assert.Empty(t, text)
}
