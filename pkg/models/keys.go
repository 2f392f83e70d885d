package models

import (
	"encoding/json"
	"fmt"
)

// Key prefixes and attribute names of the single wide table. A conversation
// and all of its messages share one partition; tenant-scoped listings go
// through the two secondary indexes.
const (
	PrefixUser = "USER#"
	PrefixFile = "FILE#"
	PrefixConv = "CONV#"
	PrefixMsg  = "MSG#"

	SKMeta = "META"

	AttrPK     = "PK"
	AttrSK     = "SK"
	AttrGSI1PK = "GSI1PK"
	AttrGSI1SK = "GSI1SK"
	AttrGSI2PK = "GSI2PK"
	AttrGSI2SK = "GSI2SK"

	IndexGSI1 = "GSI1"
	IndexGSI2 = "GSI2"

	// GSI1 partition holding every user record for admin listings.
	PartitionUsers = "USERS"
	// GSI2 partition holding every system-visible file.
	PartitionVisibilitySystem = "VISIBILITY#system"
)

// UserPK returns the base-table partition key for a user record.
func UserPK(userID string) string { return PrefixUser + userID }

// FilePK returns the base-table partition key for a file record.
func FilePK(fileID string) string { return PrefixFile + fileID }

// ConvPK returns the shared partition key for a conversation and its messages.
func ConvPK(conversationID string) string { return PrefixConv + conversationID }

// MsgSK returns the sort key of a message; the timestamp prefix yields
// chronological scan order within the partition.
func MsgSK(createdAt, messageID string) string {
	return PrefixMsg + createdAt + "#" + messageID
}

// OrgPartition returns the GSI2 partition for organization-visible files.
func OrgPartition(orgID string) string { return "ORG#" + orgID }

// CompanyPartition returns the GSI2 partition for company-visible files.
func CompanyPartition(companyID string) string { return "COMPANY#" + companyID }

// FileGSI2Partition returns the GSI2 partition key for the given visibility,
// or "" when the visibility is not projected (private and department files
// are reachable only through the owner index).
func FileGSI2Partition(visibility Visibility, scope Scope) string {
	switch visibility {
	case VisibilitySystem:
		return PartitionVisibilitySystem
	case VisibilityOrganization:
		if scope.OrganizationID == "" {
			return ""
		}
		return OrgPartition(scope.OrganizationID)
	case VisibilityCompany:
		if scope.CompanyID == "" {
			return ""
		}
		return CompanyPartition(scope.CompanyID)
	}
	return ""
}

// itemize flattens an entity into a table item and merges the key
// attributes, so the base item and its index projections always come from
// one constructor.
func itemize(entity interface{}, keys map[string]interface{}) (map[string]interface{}, error) {
	data, err := json.Marshal(entity)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal entity: %w", err)
	}
	item := map[string]interface{}{}
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, fmt.Errorf("failed to flatten entity: %w", err)
	}
	for k, v := range keys {
		item[k] = v
	}
	return item, nil
}

// decodeItem hydrates an entity from a table item, ignoring key attributes.
func decodeItem(item map[string]interface{}, entity interface{}) error {
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to marshal item: %w", err)
	}
	if err := json.Unmarshal(data, entity); err != nil {
		return fmt.Errorf("failed to decode item: %w", err)
	}
	return nil
}
