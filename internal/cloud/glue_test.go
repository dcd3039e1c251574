package cloud

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/glue"
	gluetypes "github.com/aws/aws-sdk-go-v2/service/glue/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qs-rls-manager/internal/domain"
)

func TestGlueCatalog_CreateTableDescribesCSV(t *testing.T) {
	var got *glue.CreateTableInput
	fake := &fakeGlue{
		CreateTableFn: func(in *glue.CreateTableInput) (*glue.CreateTableOutput, error) {
			got = in
			return &glue.CreateTableOutput{}, nil
		},
	}

	err := NewGlueCatalog(fake).CreateTable(context.Background(), "rls_db", domain.CatalogTable{
		Name:     "qs_rls_managed_sales",
		Location: "s3://bucket/RLS-Datasets/sales/",
		Columns:  []string{"UserARN", "GroupARN", "region"},
		Format:   domain.CSVFormat,
	})
	require.NoError(t, err)

	assert.Equal(t, "rls_db", aws.ToString(got.DatabaseName))
	ti := got.TableInput
	assert.Equal(t, "qs_rls_managed_sales", aws.ToString(ti.Name))
	assert.Equal(t, "1", ti.Parameters["skip.header.line.count"])
	sd := ti.StorageDescriptor
	assert.Equal(t, "s3://bucket/RLS-Datasets/sales/", aws.ToString(sd.Location))
	require.Len(t, sd.Columns, 3)
	for _, c := range sd.Columns {
		assert.Equal(t, "string", aws.ToString(c.Type))
	}
	assert.Equal(t, openCSVSerde, aws.ToString(sd.SerdeInfo.SerializationLibrary))
	assert.Equal(t, ",", sd.SerdeInfo.Parameters["separatorChar"])
	assert.Equal(t, `"`, sd.SerdeInfo.Parameters["quoteChar"])
}

func TestGlueCatalog_GetTable(t *testing.T) {
	fake := &fakeGlue{
		GetTableFn: func(in *glue.GetTableInput) (*glue.GetTableOutput, error) {
			return &glue.GetTableOutput{Table: &gluetypes.Table{
				Name:       in.Name,
				Parameters: map[string]string{"skip.header.line.count": "1"},
				StorageDescriptor: &gluetypes.StorageDescriptor{
					Location: aws.String("s3://b/p/"),
					Columns:  []gluetypes.Column{{Name: aws.String("UserARN")}, {Name: aws.String("dept")}},
				},
			}}, nil
		},
	}

	tbl, err := NewGlueCatalog(fake).GetTable(context.Background(), "db", "t")
	require.NoError(t, err)
	assert.Equal(t, "t", tbl.Name)
	assert.Equal(t, []string{"UserARN", "dept"}, tbl.Columns)
	assert.Equal(t, 1, tbl.Format.SkipHeaderLines)
}

func TestGlueCatalog_MissingTableIsNotFound(t *testing.T) {
	fake := &fakeGlue{
		DeleteTableFn: func(in *glue.DeleteTableInput) (*glue.DeleteTableOutput, error) {
			return nil, &smithy.GenericAPIError{Code: "EntityNotFoundException", Message: "Table not found"}
		},
	}

	err := NewGlueCatalog(fake).DeleteTable(context.Background(), "db", "t")
	require.Error(t, err)
	assert.True(t, domain.IsNotFound(err))
}
