package plan

import (
	"fmt"

	"github.com/google/uuid"
)

// FurnitureKind identifies a catalog entry
type FurnitureKind string

const (
	KindBed      FurnitureKind = "bed"
	KindSofa     FurnitureKind = "sofa"
	KindDesk     FurnitureKind = "desk"
	KindChair    FurnitureKind = "chair"
	KindWardrobe FurnitureKind = "wardrobe"
	KindTable    FurnitureKind = "table"
	KindPlant    FurnitureKind = "plant"
	KindRug      FurnitureKind = "rug"
	KindLamp     FurnitureKind = "lamp"
)

// CatalogEntry describes a furniture kind the user can place
type CatalogEntry struct {
	Kind     FurnitureKind `json:"type"`
	Name     string        `json:"name"`
	Symbol   string        `json:"symbol"`
	Code     string        `json:"code"` // ASCII label for renderers without emoji glyphs
	Width    float64       `json:"width"`
	Height   float64       `json:"height"`
	Category string        `json:"category"`
}

// StyleEntry describes a design style
type StyleEntry struct {
	Style       Style    `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Palette     []string `json:"palette"`
	Materials   string   `json:"materials"`
}

// RoomTypeEntry is a display name for a room type
type RoomTypeEntry struct {
	Type RoomType `json:"id"`
	Name string   `json:"name"`
}

var furnitureCatalog = [...]CatalogEntry{
	{Kind: KindBed, Name: "Кровать двуспальная", Symbol: "🛏️", Code: "BED", Width: 180, Height: 200, Category: "Спальня"},
	{Kind: KindSofa, Name: "Диван угловой", Symbol: "🛋️", Code: "SOFA", Width: 250, Height: 160, Category: "Гостиная"},
	{Kind: KindDesk, Name: "Рабочий стол", Symbol: "🖥️", Code: "DESK", Width: 140, Height: 70, Category: "Офис"},
	{Kind: KindChair, Name: "Кресло", Symbol: "🪑", Code: "CHR", Width: 60, Height: 60, Category: "Гостиная"},
	{Kind: KindWardrobe, Name: "Шкаф-купе", Symbol: "🚪", Code: "WRD", Width: 200, Height: 60, Category: "Спальня"},
	{Kind: KindTable, Name: "Обеденный стол", Symbol: "🍽️", Code: "TBL", Width: 120, Height: 80, Category: "Кухня"},
	{Kind: KindPlant, Name: "Растение", Symbol: "🪴", Code: "PLT", Width: 40, Height: 40, Category: "Декор"},
	{Kind: KindRug, Name: "Ковер", Symbol: "🧶", Code: "RUG", Width: 200, Height: 300, Category: "Декор"},
	{Kind: KindLamp, Name: "Торшер", Symbol: "💡", Code: "LMP", Width: 40, Height: 40, Category: "Освещение"},
}

// furnitureIndex maps each kind to its catalog slot; built once at init
var furnitureIndex = func() map[FurnitureKind]int {
	idx := make(map[FurnitureKind]int, len(furnitureCatalog))
	for i, e := range furnitureCatalog {
		idx[e.Kind] = i
	}
	return idx
}()

var styleCatalog = map[Style]StyleEntry{
	StyleScandi: {
		Style:       StyleScandi,
		Name:        "Скандинавский",
		Description: "Светлые тона, натуральное дерево, функциональность и уют.",
		Palette:     []string{"#FFFFFF", "#F5F5F5", "#D1D5DB", "#4B5563", "#93C5FD"},
		Materials:   "светлый дуб, лен, шерсть, белая краска",
	},
	StyleLoft: {
		Style:       StyleLoft,
		Name:        "Лофт",
		Description: "Индустриальный стиль: кирпич, металл, открытые пространства.",
		Palette:     []string{"#374151", "#4B5563", "#1F2937", "#991B1B", "#D97706"},
		Materials:   "красный кирпич, черный металл, бетон, темная кожа",
	},
	StyleMinimalism: {
		Style:       StyleMinimalism,
		Name:        "Минимализм",
		Description: "Чистые линии, монохромность, максимум свободного пространства.",
		Palette:     []string{"#000000", "#FFFFFF", "#F3F4F6", "#9CA3AF", "#D1D5DB"},
		Materials:   "стекло, полированный камень, матовый пластик",
	},
}

var styleOrder = []Style{StyleScandi, StyleLoft, StyleMinimalism}

var roomTypes = []RoomTypeEntry{
	{Type: RoomBedroom, Name: "Спальня"},
	{Type: RoomLivingRoom, Name: "Гостиная"},
	{Type: RoomOffice, Name: "Кабинет"},
}

// FurnitureCatalog returns the catalog in display order
func FurnitureCatalog() []CatalogEntry {
	out := make([]CatalogEntry, len(furnitureCatalog))
	copy(out, furnitureCatalog[:])
	return out
}

// ParseFurnitureKind converts a type tag into a FurnitureKind
func ParseFurnitureKind(s string) (FurnitureKind, error) {
	k := FurnitureKind(s)
	if _, ok := furnitureIndex[k]; !ok {
		return "", fmt.Errorf("%q: %w", s, ErrUnknownKind)
	}
	return k, nil
}

// LookupFurniture returns the catalog entry for a kind. Kinds obtained from
// ParseFurnitureKind or the Kind constants always resolve; anything else
// yields a placeholder entry so rendering never fails.
func LookupFurniture(kind FurnitureKind) CatalogEntry {
	if i, ok := furnitureIndex[kind]; ok {
		return furnitureCatalog[i]
	}
	return CatalogEntry{Kind: kind, Name: string(kind), Symbol: "?", Code: "?"}
}

// Styles returns all styles in display order
func Styles() []StyleEntry {
	out := make([]StyleEntry, 0, len(styleOrder))
	for _, s := range styleOrder {
		out = append(out, LookupStyle(s))
	}
	return out
}

// LookupStyle returns the style entry, falling back to scandi for unknown tags
func LookupStyle(s Style) StyleEntry {
	e, ok := styleCatalog[s]
	if !ok {
		e = styleCatalog[StyleScandi]
	}
	e.Palette = append([]string(nil), e.Palette...)
	return e
}

// RoomTypes returns the room types in display order
func RoomTypes() []RoomTypeEntry {
	return append([]RoomTypeEntry(nil), roomTypes...)
}

// RoomTypeName returns the display name of a room type
func RoomTypeName(t RoomType) string {
	for _, rt := range roomTypes {
		if rt.Type == t {
			return rt.Name
		}
	}
	return string(t)
}

// NewFurnitureItem creates an item of the given kind at the room's center,
// colored with the third palette entry of the room's style.
func NewFurnitureItem(kind FurnitureKind, cfg RoomConfig) FurnitureItem {
	entry := LookupFurniture(kind)
	palette := LookupStyle(cfg.Style).Palette
	return FurnitureItem{
		ID:       "f-" + uuid.NewString(),
		Kind:     kind,
		X:        cfg.Width / 2,
		Y:        cfg.Height / 2,
		Width:    entry.Width,
		Height:   entry.Height,
		Rotation: 0,
		Color:    palette[2],
	}
}
