package cloud

import (
	"context"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/glue"
	gluetypes "github.com/aws/aws-sdk-go-v2/service/glue/types"

	"qs-rls-manager/internal/domain"
)

// Physical layout of the CSV-backed tables.
const (
	openCSVSerde         = "org.apache.hadoop.hive.serde2.OpenCSVSerde"
	textInputFormat      = "org.apache.hadoop.mapred.TextInputFormat"
	hiveTextOutputFormat = "org.apache.hadoop.hive.ql.io.HiveIgnoreKeyTextOutputFormat"
)

// GlueAPI is the subset of the Glue client used by GlueCatalog.
type GlueAPI interface {
	GetDatabase(ctx context.Context, in *glue.GetDatabaseInput, optFns ...func(*glue.Options)) (*glue.GetDatabaseOutput, error)
	GetTable(ctx context.Context, in *glue.GetTableInput, optFns ...func(*glue.Options)) (*glue.GetTableOutput, error)
	CreateTable(ctx context.Context, in *glue.CreateTableInput, optFns ...func(*glue.Options)) (*glue.CreateTableOutput, error)
	UpdateTable(ctx context.Context, in *glue.UpdateTableInput, optFns ...func(*glue.Options)) (*glue.UpdateTableOutput, error)
	DeleteTable(ctx context.Context, in *glue.DeleteTableInput, optFns ...func(*glue.Options)) (*glue.DeleteTableOutput, error)
}

// GlueCatalog implements domain.Catalog on the Glue data catalog.
type GlueCatalog struct {
	client GlueAPI
}

// NewGlueCatalog wraps a Glue client.
func NewGlueCatalog(client GlueAPI) *GlueCatalog {
	return &GlueCatalog{client: client}
}

var _ domain.Catalog = (*GlueCatalog)(nil)

func (g *GlueCatalog) GetDatabase(ctx context.Context, name string) error {
	_, err := g.client.GetDatabase(ctx, &glue.GetDatabaseInput{Name: aws.String(name)})
	return classify("glue", "GetDatabase", err)
}

func (g *GlueCatalog) GetTable(ctx context.Context, database, name string) (*domain.CatalogTable, error) {
	out, err := g.client.GetTable(ctx, &glue.GetTableInput{
		DatabaseName: aws.String(database),
		Name:         aws.String(name),
	})
	if err != nil {
		return nil, classify("glue", "GetTable", err)
	}
	return tableFromGlue(out.Table), nil
}

func (g *GlueCatalog) CreateTable(ctx context.Context, database string, t domain.CatalogTable) error {
	_, err := g.client.CreateTable(ctx, &glue.CreateTableInput{
		DatabaseName: aws.String(database),
		TableInput:   tableInput(t),
	})
	return classify("glue", "CreateTable", err)
}

func (g *GlueCatalog) UpdateTable(ctx context.Context, database string, t domain.CatalogTable) error {
	_, err := g.client.UpdateTable(ctx, &glue.UpdateTableInput{
		DatabaseName: aws.String(database),
		TableInput:   tableInput(t),
	})
	return classify("glue", "UpdateTable", err)
}

func (g *GlueCatalog) DeleteTable(ctx context.Context, database, name string) error {
	_, err := g.client.DeleteTable(ctx, &glue.DeleteTableInput{
		DatabaseName: aws.String(database),
		Name:         aws.String(name),
	})
	return classify("glue", "DeleteTable", err)
}

// tableInput describes a header-skipping, quote-aware CSV table with one
// string column per name.
func tableInput(t domain.CatalogTable) *gluetypes.TableInput {
	cols := make([]gluetypes.Column, 0, len(t.Columns))
	for _, c := range t.Columns {
		cols = append(cols, gluetypes.Column{Name: aws.String(c), Type: aws.String("string")})
	}
	skip := strconv.Itoa(t.Format.SkipHeaderLines)
	return &gluetypes.TableInput{
		Name:      aws.String(t.Name),
		TableType: aws.String("EXTERNAL_TABLE"),
		Parameters: map[string]string{
			"classification":         "csv",
			"skip.header.line.count": skip,
		},
		StorageDescriptor: &gluetypes.StorageDescriptor{
			Columns:      cols,
			Location:     aws.String(t.Location),
			InputFormat:  aws.String(textInputFormat),
			OutputFormat: aws.String(hiveTextOutputFormat),
			SerdeInfo: &gluetypes.SerDeInfo{
				SerializationLibrary: aws.String(openCSVSerde),
				Parameters: map[string]string{
					"separatorChar": t.Format.Delimiter,
					"quoteChar":     t.Format.QuoteChar,
				},
			},
		},
	}
}

func tableFromGlue(t *gluetypes.Table) *domain.CatalogTable {
	if t == nil {
		return nil
	}
	out := &domain.CatalogTable{Name: aws.ToString(t.Name), Format: domain.CSVFormat}
	if n, err := strconv.Atoi(t.Parameters["skip.header.line.count"]); err == nil {
		out.Format.SkipHeaderLines = n
	}
	if sd := t.StorageDescriptor; sd != nil {
		out.Location = aws.ToString(sd.Location)
		for _, c := range sd.Columns {
			out.Columns = append(out.Columns, aws.ToString(c.Name))
		}
		if sd.SerdeInfo != nil {
			if d, ok := sd.SerdeInfo.Parameters["separatorChar"]; ok {
				out.Format.Delimiter = d
			}
			if q, ok := sd.SerdeInfo.Parameters["quoteChar"]; ok {
				out.Format.QuoteChar = q
			}
		}
	}
	return out
}
