package format

// Column identifies one semantically typed field used throughout the
// pipeline. The registry is closed: wire fields without a Column are dropped
// during normalization as a deliberate schema filter.
type Column int

const (
	ColDeviceID Column = iota
	ColLabel
	ColLatitude
	ColLongitude
	ColRadius
	ColActive
	ColTimestamp
	ColMin
	ColMax
	ColMean
	ColCount
	ColStart
	ColEnd
)

// Kind is the fixed value type of a column
type Kind int

const (
	KindString Kind = iota
	KindFloat
	KindInt
	KindBool
	KindTime
)

// columnSpec binds a column to its wire name and value kind
type columnSpec struct {
	wireName string
	kind     Kind
}

var columnSpecs = map[Column]columnSpec{
	ColDeviceID:  {wireName: "id", kind: KindString},
	ColLabel:     {wireName: "label", kind: KindString},
	ColLatitude:  {wireName: "latitude", kind: KindFloat},
	ColLongitude: {wireName: "longitude", kind: KindFloat},
	ColRadius:    {wireName: "radius", kind: KindFloat},
	ColActive:    {wireName: "active", kind: KindBool},
	ColTimestamp: {wireName: "timestamp", kind: KindTime},
	ColMin:       {wireName: "min", kind: KindFloat},
	ColMax:       {wireName: "max", kind: KindFloat},
	ColMean:      {wireName: "mean", kind: KindFloat},
	ColCount:     {wireName: "count", kind: KindInt},
	ColStart:     {wireName: "start", kind: KindTime},
	ColEnd:       {wireName: "end", kind: KindTime},
}

var wireToColumn = func() map[string]Column {
	index := make(map[string]Column, len(columnSpecs))
	for col, spec := range columnSpecs {
		index[spec.wireName] = col
	}
	return index
}()

// WireName returns the string key the column uses on the wire
func (c Column) WireName() string {
	return columnSpecs[c].wireName
}

// Kind returns the fixed value type of the column
func (c Column) Kind() Kind {
	return columnSpecs[c].kind
}

func (c Column) String() string {
	return columnSpecs[c].wireName
}

// ColumnForWireName looks a column up by its wire key; ok is false for
// fields outside the registry.
func ColumnForWireName(name string) (Column, bool) {
	col, ok := wireToColumn[name]
	return col, ok
}
