package rls

import (
	"strings"

	"github.com/google/uuid"
)

const objectRoot = "RLS-Datasets"

// ObjectPrefix is the storage prefix holding every CSV generated for a dataset.
func ObjectPrefix(dataSetID string) string {
	return objectRoot + "/" + dataSetID + "/"
}

// ObjectKey is the key of the rules CSV generated for a dataset. The key is
// stable so each publish adds a version to the same object.
func ObjectKey(dataSetID string) string {
	return ObjectPrefix(dataSetID) + "QS_RLS_Managed_" + dataSetID + ".csv"
}

// TableLocation is the catalog location of the rules table: the object's prefix.
func TableLocation(bucket, dataSetID string) string {
	return "s3://" + bucket + "/" + ObjectPrefix(dataSetID)
}

// TableName is the catalog table name for a dataset. Catalog names are
// lower-case and may not contain '-'.
func TableName(dataSetID string) string {
	return "qs_rls_managed_" + strings.ReplaceAll(strings.ToLower(dataSetID), "-", "_")
}

// RulesDataSetName is the display name of the rules dataset for a target.
func RulesDataSetName(targetName, targetID string) string {
	if targetName == "" {
		targetName = targetID
	}
	return "RLS rules - " + targetName
}

// newRulesDataSetID returns a fresh id for a rules dataset. Ids are never
// reused so a stale reference cannot silently point at a new dataset.
func newRulesDataSetID() string {
	return "rls-" + uuid.NewString()
}
