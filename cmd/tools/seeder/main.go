package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping DB: %v", err)
	}

	// Get Default Tenant
	var tenantID string
	err = db.QueryRow("SELECT id FROM tenants WHERE slug = 'default'").Scan(&tenantID)
	if err != nil {
		log.Println("Default tenant not found, attempting to create...")
		err = db.QueryRow(`
			INSERT INTO tenants (name, slug) VALUES ('Default Tenant', 'default')
			ON CONFLICT (slug) DO UPDATE SET name=EXCLUDED.name
			RETURNING id;
		`).Scan(&tenantID)
		if err != nil {
			log.Fatalf("Failed to retrieve or create default tenant: %v", err)
		}
	}
	log.Printf("Using Tenant ID: %s", tenantID)

	seedCatalog(db, tenantID)
	seedStock(db, tenantID)
	seedAccounts(db, tenantID)
	seedSuppliers(db, tenantID)

	log.Println("Seeding completed successfully!")
}

func seedCatalog(db *sql.DB, tenantID string) {
	products := []struct {
		SKU      string
		Name     string
		Cost     string
		Price    string
		Discount string // empty means no standing discount
	}{
		{"MBP14M3", "MacBook Pro 14 M3", "1450.00", "1999.00", ""},
		{"IPH15PRO", "iPhone 15 Pro", "780.00", "1099.00", "5"},
		{"SGS24U", "Samsung Galaxy S24 Ultra", "820.00", "1199.00", ""},
		{"SONYXM5", "Sony WH-1000XM5", "210.00", "349.00", "10"},
		{"DELLXPS13", "Dell XPS 13", "910.00", "1299.00", ""},
		{"CANONR5", "Canon EOS R5", "2600.00", "3899.00", ""},
		{"NIKEAF1", "Nike Air Force 1", "52.00", "110.00", ""},
		{"ADIUB", "Adidas Ultraboost", "78.00", "180.00", "15"},
		{"DYSONV15", "Dyson V15 Detect", "420.00", "749.00", ""},
		{"LEGOFALCON", "LEGO Millennium Falcon", "520.00", "849.99", ""},
		{"SONYPS5", "Sony PlayStation 5", "390.00", "499.00", ""},
		{"TSHIRTBLK", "Plain Black T-Shirt", "3.50", "9.99", ""},
	}

	fmt.Println("Seeding Products...")
	for _, p := range products {
		var discount sql.NullString
		if p.Discount != "" {
			discount = sql.NullString{String: p.Discount, Valid: true}
		}
		_, err := db.Exec(`
			INSERT INTO products (tenant_id, sku, name, unit_cost, unit_price, discount_percent)
			VALUES ($1, $2, $3, $4::numeric, $5::numeric, $6::numeric)
			ON CONFLICT (tenant_id, sku) DO UPDATE SET
				name = EXCLUDED.name,
				unit_cost = EXCLUDED.unit_cost,
				unit_price = EXCLUDED.unit_price,
				discount_percent = EXCLUDED.discount_percent;
		`, tenantID, p.SKU, p.Name, p.Cost, p.Price, discount)
		if err != nil {
			log.Printf("Failed to seed product %s: %v", p.SKU, err)
		}
	}
}

func seedStock(db *sql.DB, tenantID string) {
	levels := []struct {
		SKU       string
		Qty       int
		Threshold int
	}{
		{"MBP14M3", 50, 5},
		{"IPH15PRO", 100, 10},
		{"SGS24U", 80, 10},
		{"SONYXM5", 150, 15},
		{"DELLXPS13", 40, 5},
		{"CANONR5", 20, 3},
		{"NIKEAF1", 200, 20},
		{"ADIUB", 180, 20},
		{"DYSONV15", 30, 5},
		{"LEGOFALCON", 25, 5},
		{"SONYPS5", 60, 10},
		{"TSHIRTBLK", 500, 50},
	}

	fmt.Println("Seeding Stock Levels...")
	for _, l := range levels {
		_, err := db.Exec(`
			INSERT INTO stock_levels (tenant_id, sku, quantity, low_stock_threshold, out_of_stock)
			VALUES ($1, $2, $3, $4, $3 = 0)
			ON CONFLICT (tenant_id, sku) DO UPDATE SET
				quantity = EXCLUDED.quantity,
				low_stock_threshold = EXCLUDED.low_stock_threshold,
				out_of_stock = EXCLUDED.out_of_stock;
		`, tenantID, l.SKU, l.Qty, l.Threshold)
		if err != nil {
			log.Printf("Failed to seed stock for %s: %v", l.SKU, err)
		}
	}
}

func seedAccounts(db *sql.DB, tenantID string) {
	accounts := []struct {
		Number string
		Name   string
		Type   string
	}{
		{"1000", "Cash", "asset"},
		{"1100", "Accounts Receivable", "asset"},
		{"1200", "Inventory", "asset"},
		{"2000", "Accounts Payable", "liability"},
		{"2100", "Sales Tax Payable", "liability"},
		{"3000", "Owner Equity", "equity"},
		{"4000", "Sales Revenue", "revenue"},
		{"5000", "Cost of Goods Sold", "expense"},
		{"5100", "Operating Expenses", "expense"},
	}

	fmt.Println("Seeding Chart of Accounts...")
	for _, a := range accounts {
		_, err := db.Exec(`
			INSERT INTO accounts (id, tenant_id, number, name, type)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (tenant_id, number) DO UPDATE SET
				name = EXCLUDED.name,
				type = EXCLUDED.type;
		`, uuid.NewString(), tenantID, a.Number, a.Name, a.Type)
		if err != nil {
			log.Printf("Failed to seed account %s: %v", a.Number, err)
		}
	}
}

func seedSuppliers(db *sql.DB, tenantID string) {
	suppliers := []struct {
		Name  string
		Email string
		Phone string
	}{
		{"Acme Distribution", "orders@acmedist.example", "+1-555-0101"},
		{"Pacific Wholesale", "sales@pacificwholesale.example", "+1-555-0102"},
	}

	fmt.Println("Seeding Suppliers...")
	for _, s := range suppliers {
		var exists bool
		if err := db.QueryRow(
			"SELECT EXISTS (SELECT 1 FROM suppliers WHERE tenant_id = $1 AND name = $2)",
			tenantID, s.Name,
		).Scan(&exists); err != nil {
			log.Printf("Failed to check supplier %s: %v", s.Name, err)
			continue
		}
		if exists {
			continue
		}
		_, err := db.Exec(`
			INSERT INTO suppliers (id, tenant_id, name, email, phone)
			VALUES ($1, $2, $3, $4, $5);
		`, uuid.NewString(), tenantID, s.Name, s.Email, s.Phone)
		if err != nil {
			log.Printf("Failed to seed supplier %s: %v", s.Name, err)
		}
	}
}
