package nft

// Asset is a uniquely identified digital asset record.
// ID and Image never change after mint,
// Owner is mutated only through the asset registry's transfer call.
type Asset struct {
	ID    string
	Name  string
	Image []byte
	Owner string
}
