package companies

// Company is the public view of a catalog owner.
type Company struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
	URL  string `json:"url,omitempty"`
	Logo string `json:"logo,omitempty"`
}

// Record pairs a company with its shared order key. It stays inside the server.
type Record struct {
	Company
	Key string `json:"-"`
}

// Property names tried, in order, when reading company rows.
var (
	SlugProperties = []string{"Slug", "slug", "Client Slug", "client-slug"}
	NameProperties = []string{"Name", "Nombre", "Company", "Empresa"}
	URLProperties  = []string{"URL", "Web", "Website"}
	LogoProperties = []string{"Logo", "Image", "Imagen"}
	KeyProperties  = []string{"Key", "Clave", "Password", "Secret"}
)
