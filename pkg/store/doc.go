/*
Package store is the typed gateway between models and a core.Database.

A Session owns the injected database, the model registry, the logger and the
identity generator. Repositories are stateless values over a session, bound to
one model kind and its collection:

	sess := store.NewSession(db, reg, store.WithLogger(logger))
	users, err := sess.Repository(&User{})

	u, _ := model.New[*User](reg)
	_ = u.Set("name", "ada")
	err = users.Save(ctx, u) // insert: u now has an _id

	for m, err := range users.Find(core.Document{"name": "ada"}, nil).Limit(10).All(ctx) {
		...
	}

Read failures are logged and returned wrapped in ErrRead together with an
empty result; write failures are wrapped in ErrWrite. Both keep the
underlying cause for errors.Is.
*/
package store
