/*
Package schema holds field type descriptors and the per-model field schema.

A Type describes what a field accepts: a primitive kind (int, string, bool,
float, double, any, id, time) or a custom kind naming a registered model or
enum, optionally as an array and optionally nullable.

	schema.Int()                      // int, not null
	schema.String().Nullable()        // string or nil
	schema.Model("Address").Array()   // list of Address entities or references

Types are collected once per model type through a Declaration and frozen into
a read-only Schema shared by every instance of that model.

Check never coerces: an int field rejects float64(1), a double field rejects
float32. Validation failures are reported as *ValidationError, unknown field
names as *SchemaError.
*/
package schema
