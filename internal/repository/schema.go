package repository

import (
	"context"
	"fmt"

	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

var dateType = map[string]string{dialect.Postgres: "date"}

var (
	categoriesColumns = []*schema.Column{
		{Name: "category_id", Type: field.TypeInt, Increment: true},
		{Name: "name", Type: field.TypeString, Unique: true},
	}
	categoriesTable = &schema.Table{
		Name:       "categories",
		Columns:    categoriesColumns,
		PrimaryKey: []*schema.Column{categoriesColumns[0]},
	}

	storageColumns = []*schema.Column{
		{Name: "storage_id", Type: field.TypeInt64, Increment: true},
		{Name: "name", Type: field.TypeString, Unique: true},
	}
	storageTable = &schema.Table{
		Name:       "storage",
		Columns:    storageColumns,
		PrimaryKey: []*schema.Column{storageColumns[0]},
	}

	productsColumns = []*schema.Column{
		{Name: "product_id", Type: field.TypeInt64, Increment: true},
		{Name: "canonical_name", Type: field.TypeString},
		{Name: "canonical_name_en", Type: field.TypeString, Nullable: true},
		{Name: "category_id", Type: field.TypeInt, Nullable: true},
		{Name: "default_storage_id", Type: field.TypeInt64, Nullable: true},
	}
	productsTable = &schema.Table{
		Name:       "products",
		Columns:    productsColumns,
		PrimaryKey: []*schema.Column{productsColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "products_categories_products",
				Columns:    []*schema.Column{productsColumns[3]},
				RefColumns: []*schema.Column{categoriesColumns[0]},
				OnDelete:   schema.SetNull,
			},
			{
				Symbol:     "products_storage_products",
				Columns:    []*schema.Column{productsColumns[4]},
				RefColumns: []*schema.Column{storageColumns[0]},
				OnDelete:   schema.SetNull,
			},
		},
	}

	productAliasesColumns = []*schema.Column{
		{Name: "alias_id", Type: field.TypeInt64, Increment: true},
		{Name: "product_id", Type: field.TypeInt64},
		{Name: "alias_text", Type: field.TypeString, Unique: true},
		{Name: "source", Type: field.TypeString, Default: "OCR"},
		{Name: "confidence", Type: field.TypeInt, Default: 60},
		{Name: "created_at", Type: field.TypeTime},
	}
	productAliasesTable = &schema.Table{
		Name:       "product_aliases",
		Columns:    productAliasesColumns,
		PrimaryKey: []*schema.Column{productAliasesColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "product_aliases_products_aliases",
				Columns:    []*schema.Column{productAliasesColumns[1]},
				RefColumns: []*schema.Column{productsColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
	}

	productTranslationsColumns = []*schema.Column{
		{Name: "translation_id", Type: field.TypeInt64, Increment: true},
		{Name: "product_id", Type: field.TypeInt64},
		{Name: "source_lang", Type: field.TypeString, Size: 8},
		{Name: "target_lang", Type: field.TypeString, Size: 8},
		{Name: "translated_text", Type: field.TypeString},
	}
	productTranslationsTable = &schema.Table{
		Name:       "product_translations",
		Columns:    productTranslationsColumns,
		PrimaryKey: []*schema.Column{productTranslationsColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "product_translations_products_translations",
				Columns:    []*schema.Column{productTranslationsColumns[1]},
				RefColumns: []*schema.Column{productsColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
		Indexes: []*schema.Index{
			{
				Name:    "producttranslation_product_id_source_lang_target_lang",
				Unique:  true,
				Columns: []*schema.Column{productTranslationsColumns[1], productTranslationsColumns[2], productTranslationsColumns[3]},
			},
		},
	}

	shelfLifeRulesColumns = []*schema.Column{
		{Name: "rule_id", Type: field.TypeInt64, Increment: true},
		{Name: "product_id", Type: field.TypeInt64, Nullable: true},
		{Name: "category_id", Type: field.TypeInt, Nullable: true},
		{Name: "storage_id", Type: field.TypeInt64},
		{Name: "open_state", Type: field.TypeString, Default: "sealed"},
		{Name: "days", Type: field.TypeInt},
	}
	shelfLifeRulesTable = &schema.Table{
		Name:       "shelf_life_rules",
		Columns:    shelfLifeRulesColumns,
		PrimaryKey: []*schema.Column{shelfLifeRulesColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "shelfliferule_storage_id_open_state",
				Columns: []*schema.Column{shelfLifeRulesColumns[3], shelfLifeRulesColumns[4]},
			},
		},
	}

	receiptsColumns = []*schema.Column{
		{Name: "receipt_id", Type: field.TypeInt64, Increment: true},
		{Name: "user_id", Type: field.TypeInt64},
		{Name: "purchase_date", Type: field.TypeTime, SchemaType: dateType},
		{Name: "image_path", Type: field.TypeString},
		{Name: "ocr_engine", Type: field.TypeString},
		{Name: "ocr_version", Type: field.TypeString, Nullable: true},
		{Name: "status", Type: field.TypeString},
		{Name: "created_at", Type: field.TypeTime},
	}
	receiptsTable = &schema.Table{
		Name:       "receipts",
		Columns:    receiptsColumns,
		PrimaryKey: []*schema.Column{receiptsColumns[0]},
	}

	receiptImagesColumns = []*schema.Column{
		{Name: "image_id", Type: field.TypeInt64, Increment: true},
		{Name: "receipt_id", Type: field.TypeInt64},
		{Name: "file_path", Type: field.TypeString},
		{Name: "hash_sha256", Type: field.TypeString, Unique: true, Size: 64},
	}
	receiptImagesTable = &schema.Table{
		Name:       "receipt_images",
		Columns:    receiptImagesColumns,
		PrimaryKey: []*schema.Column{receiptImagesColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "receipt_images_receipts_images",
				Columns:    []*schema.Column{receiptImagesColumns[1]},
				RefColumns: []*schema.Column{receiptsColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
	}

	ocrLinesColumns = []*schema.Column{
		{Name: "ocr_line_id", Type: field.TypeInt64, Increment: true},
		{Name: "receipt_id", Type: field.TypeInt64},
		{Name: "line_no", Type: field.TypeInt},
		{Name: "raw_text", Type: field.TypeString},
		{Name: "ocr_confidence", Type: field.TypeFloat64, Nullable: true},
		{Name: "block_type", Type: field.TypeString},
	}
	ocrLinesTable = &schema.Table{
		Name:       "ocr_lines",
		Columns:    ocrLinesColumns,
		PrimaryKey: []*schema.Column{ocrLinesColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "ocr_lines_receipts_lines",
				Columns:    []*schema.Column{ocrLinesColumns[1]},
				RefColumns: []*schema.Column{receiptsColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
	}

	receiptItemsColumns = []*schema.Column{
		{Name: "receipt_item_id", Type: field.TypeInt64, Increment: true},
		{Name: "receipt_id", Type: field.TypeInt64},
		{Name: "line_text", Type: field.TypeString},
		{Name: "raw_name", Type: field.TypeString},
		{Name: "normalized_name", Type: field.TypeString},
		{Name: "normalization_method", Type: field.TypeString},
		{Name: "price", Type: field.TypeFloat64, Nullable: true},
		{Name: "normalized_product_id", Type: field.TypeInt64, Nullable: true},
		{Name: "category_id", Type: field.TypeInt, Nullable: true},
		{Name: "normalization_confidence", Type: field.TypeFloat64, Nullable: true},
		{Name: "is_manual_correction", Type: field.TypeString, Size: 1, Default: "N"},
	}
	receiptItemsTable = &schema.Table{
		Name:       "receipt_items",
		Columns:    receiptItemsColumns,
		PrimaryKey: []*schema.Column{receiptItemsColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "receipt_items_receipts_items",
				Columns:    []*schema.Column{receiptItemsColumns[1]},
				RefColumns: []*schema.Column{receiptsColumns[0]},
				OnDelete:   schema.Cascade,
			},
			{
				Symbol:     "receipt_items_products_items",
				Columns:    []*schema.Column{receiptItemsColumns[7]},
				RefColumns: []*schema.Column{productsColumns[0]},
				OnDelete:   schema.SetNull,
			},
		},
	}

	inventoryBatchesColumns = []*schema.Column{
		{Name: "batch_id", Type: field.TypeInt64, Increment: true},
		{Name: "user_id", Type: field.TypeInt64},
		{Name: "product_id", Type: field.TypeInt64},
		{Name: "receipt_item_id", Type: field.TypeInt64, Nullable: true},
		{Name: "qty", Type: field.TypeFloat64},
		{Name: "purchase_date", Type: field.TypeTime, SchemaType: dateType},
		{Name: "storage_id", Type: field.TypeInt64, Nullable: true},
		{Name: "expected_expiry_date", Type: field.TypeTime, Nullable: true, SchemaType: dateType},
		{Name: "opened_at", Type: field.TypeTime, Nullable: true},
		{Name: "status", Type: field.TypeString},
		{Name: "source", Type: field.TypeString},
	}
	inventoryBatchesTable = &schema.Table{
		Name:       "inventory_batches",
		Columns:    inventoryBatchesColumns,
		PrimaryKey: []*schema.Column{inventoryBatchesColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "inventory_batches_products_batches",
				Columns:    []*schema.Column{inventoryBatchesColumns[2]},
				RefColumns: []*schema.Column{productsColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
		Indexes: []*schema.Index{
			{
				Name:    "inventorybatch_user_id_status",
				Columns: []*schema.Column{inventoryBatchesColumns[1], inventoryBatchesColumns[9]},
			},
		},
	}

	allergensColumns = []*schema.Column{
		{Name: "allergen_id", Type: field.TypeInt64, Increment: true},
		{Name: "name", Type: field.TypeString, Unique: true},
	}
	allergensTable = &schema.Table{
		Name:       "allergens",
		Columns:    allergensColumns,
		PrimaryKey: []*schema.Column{allergensColumns[0]},
	}

	userAllergiesColumns = []*schema.Column{
		{Name: "user_id", Type: field.TypeInt64},
		{Name: "allergen_id", Type: field.TypeInt64},
	}
	userAllergiesTable = &schema.Table{
		Name:       "user_allergies",
		Columns:    userAllergiesColumns,
		PrimaryKey: userAllergiesColumns,
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "user_allergies_allergens_users",
				Columns:    []*schema.Column{userAllergiesColumns[1]},
				RefColumns: []*schema.Column{allergensColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
	}

	userDislikesColumns = []*schema.Column{
		{Name: "user_id", Type: field.TypeInt64},
		{Name: "product_id", Type: field.TypeInt64},
	}
	userDislikesTable = &schema.Table{
		Name:       "user_dislikes",
		Columns:    userDislikesColumns,
		PrimaryKey: userDislikesColumns,
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "user_dislikes_products_dislikes",
				Columns:    []*schema.Column{userDislikesColumns[1]},
				RefColumns: []*schema.Column{productsColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
	}

	dietaryPreferencesColumns = []*schema.Column{
		{Name: "pref_id", Type: field.TypeInt64, Increment: true},
		{Name: "code", Type: field.TypeString, Unique: true},
		{Name: "label", Type: field.TypeString},
	}
	dietaryPreferencesTable = &schema.Table{
		Name:       "dietary_preferences",
		Columns:    dietaryPreferencesColumns,
		PrimaryKey: []*schema.Column{dietaryPreferencesColumns[0]},
	}

	userDietaryPreferencesColumns = []*schema.Column{
		{Name: "user_id", Type: field.TypeInt64},
		{Name: "pref_id", Type: field.TypeInt64},
	}
	userDietaryPreferencesTable = &schema.Table{
		Name:       "user_dietary_preferences",
		Columns:    userDietaryPreferencesColumns,
		PrimaryKey: userDietaryPreferencesColumns,
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "user_dietary_preferences_dietary_preferences_users",
				Columns:    []*schema.Column{userDietaryPreferencesColumns[1]},
				RefColumns: []*schema.Column{dietaryPreferencesColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
	}

	// Tables in dependency order.
	Tables = []*schema.Table{
		categoriesTable,
		storageTable,
		productsTable,
		productAliasesTable,
		productTranslationsTable,
		shelfLifeRulesTable,
		receiptsTable,
		receiptImagesTable,
		ocrLinesTable,
		receiptItemsTable,
		inventoryBatchesTable,
		allergensTable,
		userAllergiesTable,
		userDislikesTable,
		dietaryPreferencesTable,
		userDietaryPreferencesTable,
	}
)

func init() {
	productsTable.ForeignKeys[0].RefTable = categoriesTable
	productsTable.ForeignKeys[1].RefTable = storageTable
	productAliasesTable.ForeignKeys[0].RefTable = productsTable
	productTranslationsTable.ForeignKeys[0].RefTable = productsTable
	receiptImagesTable.ForeignKeys[0].RefTable = receiptsTable
	ocrLinesTable.ForeignKeys[0].RefTable = receiptsTable
	receiptItemsTable.ForeignKeys[0].RefTable = receiptsTable
	receiptItemsTable.ForeignKeys[1].RefTable = productsTable
	inventoryBatchesTable.ForeignKeys[0].RefTable = productsTable
	userAllergiesTable.ForeignKeys[0].RefTable = allergensTable
	userDislikesTable.ForeignKeys[0].RefTable = productsTable
	userDietaryPreferencesTable.ForeignKeys[0].RefTable = dietaryPreferencesTable
}

// Migrate creates missing tables, columns and indexes. It never drops.
func (db *DB) Migrate(ctx context.Context) error {
	m, err := schema.NewMigrate(db.drv)
	if err != nil {
		return fmt.Errorf("init migrate: %w", err)
	}
	if err := m.Create(ctx, Tables...); err != nil {
		db.logger.Error("db.migrate.failed", "error", err)
		return fmt.Errorf("migrate: %w", err)
	}
	db.logger.Info("db.migrate.ok", "tables", len(Tables))
	return nil
}
