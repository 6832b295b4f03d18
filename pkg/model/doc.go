/*
Package model implements typed, schema-validated entities that map to and
from raw documents.

A model is a struct embedding model.Base that declares its fields once:

	type User struct{ model.Base }

	func (*User) Collection() string { return "users" }

	func (*User) DeclareTypes(d *schema.Declaration) {
		d.Field("name", schema.String())
		d.Field("address", schema.Model("Address").Nullable())
		d.Field("friends", schema.Model("User").Array())
	}

Types are registered on an explicit Registry, which runs DeclareTypes exactly
once per type and caches the resulting schema. Instances are created through
the registry and mutated only through validated setters:

	reg := model.NewRegistry()
	_ = reg.Register(&User{}, &Address{})

	u, _ := model.New[*User](reg)
	_ = u.Set("name", "ada")   // ok
	_ = u.Set("name", 42)      // *schema.ValidationError
	_ = u.Set("nick", "a")     // *schema.SchemaError

Embedded entities serialize inline, references serialize to the
{__ref, _id, __model, __collection} triple and resolve lazily through a Loader.
*/
package model
