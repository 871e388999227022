// Package slug builds the URL-safe routing keys used to address organizations.
//
//	slug.Make("Institut Beauté & Spa") // "institut-beaute-spa"
//	slug.Valid("institut-beaute-spa")   // true
package slug
