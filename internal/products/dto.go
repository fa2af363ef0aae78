package products

import "github.com/angelmondragon/catalogo-presupuesto/internal/companies"

// Product is one catalog entry. Tier prices of zero mean no override at that quantity.
type Product struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Category    string             `json:"category"`
	Price       float64            `json:"price"`
	PriceX10    float64            `json:"priceX10"`
	PriceX50    float64            `json:"priceX50"`
	PriceX100   float64            `json:"priceX100"`
	Description string             `json:"description"`
	Image       string             `json:"image"`
	Company     *companies.Company `json:"company,omitempty"`
}

// RelationAliases are the relation property names tried after the ones discovered from
// the products schema.
var RelationAliases = []string{
	"Company", "Empresa", "Cliente", "Client",
	"Companies", "Empresas", "Clientes", "Clients",
}

var (
	nameProperties        = []string{"Name", "Nombre", "Producto", "Product"}
	categoryProperties    = []string{"Category", "Categoría", "Categoria"}
	descriptionProperties = []string{"Description", "Descripción", "Descripcion"}
	imageProperties       = []string{"Image", "Imagen", "Foto", "Photo"}
	priceProperties       = []string{"Price", "Precio"}
	priceX10Properties    = []string{"Price x10", "Precio x10", "PriceX10"}
	priceX50Properties    = []string{"Price x50", "Precio x50", "PriceX50"}
	priceX100Properties   = []string{"Price x100", "Precio x100", "PriceX100"}
)
