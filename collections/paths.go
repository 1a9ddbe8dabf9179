/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package collections

import "fmt"

// ConfigPath is the site-level configuration file in the content repository.
const ConfigPath = "content/config.json"

// Every path below is a pure function of its inputs so that re-deriving a
// location never requires a lookup table.

// PagePath locates a standalone page.
func PagePath(slug string) string {
	return fmt.Sprintf("content/pages/%s.json", slug)
}

// SchemaPath locates the schema blob for a collection type.
func SchemaPath(collectionType string) string {
	return fmt.Sprintf("content/%s/_schema.json", collectionType)
}

// ItemPath locates a non-partitioned collection item.
func ItemPath(collectionType, slug string) string {
	return fmt.Sprintf("content/%s/%s.json", collectionType, slug)
}

// VillageItemPath locates one item inside a village partition.
func VillageItemPath(collectionType, village, slug string) string {
	return fmt.Sprintf("content/collections/%s/%s/%s.json", collectionType, village, slug)
}

// VillageIndexPath locates the per-village collection index.
func VillageIndexPath(collectionType, village string) string {
	return fmt.Sprintf("content/collections/%s/%s.json", collectionType, village)
}
