package notion

// Page is a single database row: its id plus the property bag keyed by name.
type Page struct {
	ID         string     `json:"id"`
	Properties Properties `json:"properties"`
}

type Properties map[string]PropertyValue

// PropertyValue is the tagged union Notion returns for every property. Type names the
// populated variant; extractors still read every variant so a mislabeled value degrades
// gracefully instead of disappearing.
type PropertyValue struct {
	ID       string         `json:"id,omitempty"`
	Type     string         `json:"type"`
	Title    []RichText     `json:"title,omitempty"`
	RichText []RichText     `json:"rich_text,omitempty"`
	Select   *SelectOption  `json:"select,omitempty"`
	Formula  *FormulaResult `json:"formula,omitempty"`
	URL      *string        `json:"url,omitempty"`
	Files    []File         `json:"files,omitempty"`
	Relation []Relation     `json:"relation,omitempty"`
	Number   *float64       `json:"number,omitempty"`
}

const (
	TypeTitle    = "title"
	TypeRichText = "rich_text"
	TypeSelect   = "select"
	TypeFormula  = "formula"
	TypeURL      = "url"
	TypeFiles    = "files"
	TypeRelation = "relation"
	TypeNumber   = "number"
)

type RichText struct {
	PlainText string `json:"plain_text"`
}

type SelectOption struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

type FormulaResult struct {
	Type    string   `json:"type"`
	String  *string  `json:"string,omitempty"`
	Number  *float64 `json:"number,omitempty"`
	Boolean *bool    `json:"boolean,omitempty"`
}

type File struct {
	Name     string   `json:"name,omitempty"`
	Type     string   `json:"type,omitempty"`
	File     *FileURL `json:"file,omitempty"`
	External *FileURL `json:"external,omitempty"`
}

type FileURL struct {
	URL string `json:"url"`
}

type Relation struct {
	ID string `json:"id"`
}

// Database is the schema returned by the retrieve-database endpoint.
type Database struct {
	ID         string                      `json:"id"`
	Properties map[string]DatabaseProperty `json:"properties"`
}

type DatabaseProperty struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Type     string            `json:"type"`
	Relation *RelationSettings `json:"relation,omitempty"`
}

type RelationSettings struct {
	DatabaseID string `json:"database_id"`
}

// Filter is a single-property database query predicate.
type Filter struct {
	Property string             `json:"property"`
	RichText *TextCondition     `json:"rich_text,omitempty"`
	Relation *RelationCondition `json:"relation,omitempty"`
}

type TextCondition struct {
	Equals string `json:"equals"`
}

type RelationCondition struct {
	Contains string `json:"contains"`
}

// TextEquals matches rows whose text property equals value exactly.
func TextEquals(property, value string) *Filter {
	return &Filter{Property: property, RichText: &TextCondition{Equals: value}}
}

// RelationContains matches rows whose relation property references id.
func RelationContains(property, id string) *Filter {
	return &Filter{Property: property, Relation: &RelationCondition{Contains: id}}
}

type QueryRequest struct {
	Filter      *Filter `json:"filter,omitempty"`
	StartCursor string  `json:"start_cursor,omitempty"`
	PageSize    int     `json:"page_size,omitempty"`
}

type QueryResponse struct {
	Results    []Page  `json:"results"`
	HasMore    bool    `json:"has_more"`
	NextCursor *string `json:"next_cursor"`
}
