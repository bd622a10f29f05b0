// Package importer loads vocabulary and translations from spreadsheets.
//
// Each data row holds an item's text, its CEFR level, an optional frequency
// rank and an optional translation. Existing items are matched by exact
// text within the target language and are never modified; translations are
// upserted.
package importer
