// Package base is the composition root of a typed object-document mapper.
//
// Models are Go structs embedding model.Base that declare their fields once
// through DeclareTypes. Values are validated on every Set, persisted as plain
// documents and reconstructed with embedded models, enums and lazy
// references intact.
//
// Features:
//
//   - **Declared schemas**: primitive, array, nullable, enum and model-typed fields.
//   - **Lazy references**: a reference is fetched on first use and memoized per instance.
//   - **Repositories**: find, count, distinct, save, update, remove, aggregate and map/reduce.
//   - **Lazy cursors**: nothing is read until iteration; sort, skip, limit and paging.
//   - **Adapters**: in-memory (default), filesystem (JSON or YAML files) and MongoDB.
//
// Usage:
//
//	reg := base.NewRegistry()
//	if err := reg.Register(&User{}); err != nil {
//		return err
//	}
//
//	sess, err := base.New(ctx, os.Getenv("BASE_DB_URL"), base.WithRegistry(reg))
//	if err != nil {
//		return err
//	}
//	defer sess.Close(ctx)
//
//	users, err := base.Open[*User](sess)
//	u := users.New()
//	_ = u.Set("name", "Ada")
//	err = users.Save(ctx, u)
package base
