package catalog

// Category groups folders of related image sequences under a unique name.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// FolderRequest is the JSON payload for creating a folder under a category.
type FolderRequest struct {
	Name string `json:"name"`
}
