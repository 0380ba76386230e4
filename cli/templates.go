package cli

import (
	"context"

	"github.com/richinex/toolsuite/templates"
)

const maxTemplatePreviewLen = 60

func (rt *runtime) templateStore() (*templates.Store, func(), error) {
	kv, _, err := rt.openStore()
	if err != nil {
		return nil, nil, err
	}
	store := templates.NewStore(kv, templates.WithLogger(rt.logger))
	return store, func() { _ = kv.Close() }, nil
}

// TemplatesList prints every stored template.
func TemplatesList(ctx context.Context, opts Options) error {
	rt, err := newRuntime(opts)
	if err != nil {
		return err
	}
	defer rt.close()

	store, closeStore, err := rt.templateStore()
	if err != nil {
		return err
	}
	defer closeStore()

	list, err := store.List(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		rt.printf("(no templates)\n")
		return nil
	}
	for _, t := range list {
		rt.printf("%-38s %-20s %s\n", t.ID, t.Name, truncateString(t.Message, maxTemplatePreviewLen))
	}
	return nil
}

// TemplatesAdd creates a template and prints its ID.
func TemplatesAdd(ctx context.Context, name, message string, opts Options) error {
	rt, err := newRuntime(opts)
	if err != nil {
		return err
	}
	defer rt.close()

	store, closeStore, err := rt.templateStore()
	if err != nil {
		return err
	}
	defer closeStore()

	t, err := store.Create(ctx, name, message)
	if err != nil {
		return err
	}
	rt.printf("Created template %s\n", t.ID)
	return nil
}

// TemplatesUpdate replaces a template's name and message.
func TemplatesUpdate(ctx context.Context, id, name, message string, opts Options) error {
	rt, err := newRuntime(opts)
	if err != nil {
		return err
	}
	defer rt.close()

	store, closeStore, err := rt.templateStore()
	if err != nil {
		return err
	}
	defer closeStore()

	t, err := store.Update(ctx, id, name, message)
	if err != nil {
		return err
	}
	rt.printf("Updated template %s\n", t.ID)
	return nil
}

// TemplatesRemove deletes a template.
func TemplatesRemove(ctx context.Context, id string, opts Options) error {
	rt, err := newRuntime(opts)
	if err != nil {
		return err
	}
	defer rt.close()

	store, closeStore, err := rt.templateStore()
	if err != nil {
		return err
	}
	defer closeStore()

	if err := store.Delete(ctx, id); err != nil {
		return err
	}
	rt.printf("Deleted template %s\n", id)
	return nil
}
