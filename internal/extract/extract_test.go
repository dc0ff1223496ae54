package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const strictBlock = "Кадастровый номер: 77:01:000001:1; Площадь: 500.0; Вид разрешённого использования: ИЖС"

func TestCadastralNumbers(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"embedded", "Земельный участок ...16:33:060205:216... Татарстан", []string{"16:33:060205:216"}},
		{"order preserved", "участки 50:21:0100101:55 и 16:33:060205:216", []string{"50:21:0100101:55", "16:33:060205:216"}},
		{"duplicates kept", "16:1:2:3, повтор 16:1:2:3", []string{"16:1:2:3", "16:1:2:3"}},
		{"three segments only", "номер 16:33:060205", []string{}},
		{"empty", "", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CadastralNumbers(tt.text))
		})
	}
}

func TestAreaLocaleIdempotent(t *testing.T) {
	a := Area("Земельный участок площадью 1 234,5 кв.м, категория земель")
	b := Area("Земельный участок площадью 1234.5 кв.м, категория земель")
	require.NotNil(t, a)
	require.NotNil(t, b)
	assert.InDelta(t, 1234.5, *a, 1e-9)
	assert.InDelta(t, *a, *b, 1e-9)
}

func TestArea(t *testing.T) {
	tests := []struct {
		name string
		text string
		want float64
	}{
		{"strict", strictBlock, 500},
		{"strict with qualifier", "Площадь (кв.м): 1 500", 1500},
		{"loose meters", "участок площадью 600 м, расположенный", 600},
		{"loose spaced unit", "общей площадью 2500 кв. м", 2500},
		{"no-break space thousands", "площадью 12 000 кв.м", 12000},
		{"bare quantity", "Земельный участок 800 кв.м в деревне", 800},
		{"square meter sign", "участок 45,5 м²", 45.5},
		{"label words between", "Площадь земельного участка 1200 кв.м", 1200},
		{"digits after a space stay separate", "Площадь: 500 16:33:060205:216", 500},
		{"grouped thousands before cadastral", "Площадь: 1 500 16:33:060205:216", 1500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Area(tt.text)
			require.NotNil(t, got)
			assert.InDelta(t, tt.want, *got, 1e-9)
		})
	}
}

func TestAreaMiss(t *testing.T) {
	assert.Nil(t, Area(""))
	assert.Nil(t, Area("Кадастровый номер: 16:33:060205:216"))
	assert.Nil(t, Area("Площадь: не указана"))
	assert.Nil(t, Area("площадью 0 кв.м"))
}

func TestAreaStrictTakesPrecedence(t *testing.T) {
	got := Area("Площадь: 700; ранее участок площадью 650 кв.м")
	require.NotNil(t, got)
	assert.InDelta(t, 700, *got, 1e-9)
}

func TestUsageClass(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"strict", strictBlock, "ИЖС"},
		{"strict yo-less spelling", "Вид разрешенного использования: для ведения ЛПХ; Категория: земли населенных пунктов", "для ведения ЛПХ"},
		{"loose prose", "Земельный участок, разрешенное использование - для ведения личного подсобного хозяйства. Площадь 1000 кв.м", "для ведения личного подсобного хозяйства"},
		{"loose comma terminated", "разрешенное использование: сельскохозяйственное производство, кадастровый номер 16:1:2:3", "сельскохозяйственное производство"},
		{"loose runs to end", "с видом разрешенного использования для индивидуального жилищного строительства", "для индивидуального жилищного строительства"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, UsageClass(tt.text))
		})
	}
}

func TestUsageClassMiss(t *testing.T) {
	assert.Empty(t, UsageClass(""))
	assert.Empty(t, UsageClass("Кадастровый номер: 16:33:060205:216; Площадь: 500"))
}

func TestExtract(t *testing.T) {
	f := Extract(strictBlock)
	assert.Equal(t, "77:01:000001:1", f.Cadastral())
	require.NotNil(t, f.Area)
	assert.InDelta(t, 500.0, *f.Area, 1e-9)
	assert.Equal(t, "ИЖС", f.UsageClass)

	empty := Extract("")
	assert.Empty(t, empty.Cadastral())
	assert.Nil(t, empty.Area)
	assert.Empty(t, empty.UsageClass)
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in     string
		want   float64
		wantOK bool
	}{
		{"1 234,5", 1234.5, true},
		{"1234.5", 1234.5, true},
		{" 15 000 ", 15000, true},
		{"", 0, false},
		{"abc", 0, false},
		{"NaN", 0, false},
		{"Inf", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseNumber(tt.in)
		assert.Equal(t, tt.wantOK, ok, tt.in)
		assert.InDelta(t, tt.want, got, 1e-9, tt.in)
	}
}
