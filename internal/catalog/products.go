package catalog

import "shopping-assistant-api/internal/models"

// Default returns the index over the built-in product dataset.
func Default() *Index {
	idx, err := New(defaultProducts)
	if err != nil {
		panic("catalog: invalid built-in dataset: " + err.Error())
	}
	return idx
}

var defaultProducts = []models.Product{
	// Electronics
	{ID: 1, Name: "Wireless Bluetooth Headphones", Category: "electronics", Price: 120, Rating: 4.5, Brand: "AudioTech"},
	{ID: 2, Name: "Smartphone Case", Category: "electronics", Price: 25, Rating: 4.2, Brand: "ProtectPro"},
	{ID: 3, Name: "Laptop Stand", Category: "electronics", Price: 45, Rating: 4.3, Brand: "DeskMaster"},
	{ID: 4, Name: "Wireless Charger", Category: "electronics", Price: 35, Rating: 4.1, Brand: "ChargeFast"},
	{ID: 5, Name: "Smart Watch", Category: "electronics", Price: 200, Rating: 4.6, Brand: "TimeTech"},

	// Sportswear
	{ID: 6, Name: "Running Shoes", Category: "sportswear", Price: 80, Rating: 4.4, Brand: "RunFast"},
	{ID: 7, Name: "Yoga Mat", Category: "sportswear", Price: 30, Rating: 4.3, Brand: "FlexFit"},
	{ID: 8, Name: "Sports Water Bottle", Category: "sportswear", Price: 15, Rating: 4.2, Brand: "HydroSport"},
	{ID: 9, Name: "Gym Bag", Category: "sportswear", Price: 50, Rating: 4.1, Brand: "FitCarry"},
	{ID: 10, Name: "Athletic Wear Set", Category: "sportswear", Price: 65, Rating: 4.5, Brand: "ActiveWear"},

	// Home decor
	{ID: 11, Name: "Table Lamp", Category: "home_decor", Price: 40, Rating: 4.2, Brand: "LightUp"},
	{ID: 12, Name: "Wall Art Print", Category: "home_decor", Price: 20, Rating: 4.0, Brand: "ArtSpace"},
	{ID: 13, Name: "Throw Pillow", Category: "home_decor", Price: 25, Rating: 4.3, Brand: "ComfyHome"},
	{ID: 14, Name: "Decorative Vase", Category: "home_decor", Price: 35, Rating: 4.1, Brand: "ElegantDecor"},
	{ID: 15, Name: "Scented Candle Set", Category: "home_decor", Price: 30, Rating: 4.4, Brand: "AromaBliss"},

	// Books
	{ID: 16, Name: "Self-Help Book", Category: "books", Price: 15, Rating: 4.3, Brand: "WisdomPress"},
	{ID: 17, Name: "Fiction Novel", Category: "books", Price: 12, Rating: 4.5, Brand: "StoryWorld"},
	{ID: 18, Name: "Cookbook", Category: "books", Price: 25, Rating: 4.2, Brand: "ChefMaster"},
	{ID: 19, Name: "Travel Guide", Category: "books", Price: 18, Rating: 4.1, Brand: "ExploreMore"},
	{ID: 20, Name: "Art Book", Category: "books", Price: 35, Rating: 4.4, Brand: "VisualArts"},

	// Fashion
	{ID: 21, Name: "Designer Handbag", Category: "fashion", Price: 150, Rating: 4.6, Brand: "StyleLux"},
	{ID: 22, Name: "Casual T-Shirt", Category: "fashion", Price: 20, Rating: 4.2, Brand: "ComfortWear"},
	{ID: 23, Name: "Denim Jeans", Category: "fashion", Price: 60, Rating: 4.3, Brand: "DenimCraft"},
	{ID: 24, Name: "Sunglasses", Category: "fashion", Price: 40, Rating: 4.1, Brand: "SunShield"},
	{ID: 25, Name: "Leather Wallet", Category: "fashion", Price: 35, Rating: 4.4, Brand: "LeatherPro"},

	// Kitchen
	{ID: 26, Name: "Coffee Maker", Category: "kitchen", Price: 85, Rating: 4.5, Brand: "BrewMaster"},
	{ID: 27, Name: "Cutting Board Set", Category: "kitchen", Price: 30, Rating: 4.3, Brand: "ChopSafe"},
	{ID: 28, Name: "Non-stick Pan", Category: "kitchen", Price: 45, Rating: 4.4, Brand: "CookEasy"},
	{ID: 29, Name: "Spice Rack", Category: "kitchen", Price: 25, Rating: 4.2, Brand: "FlavorOrganize"},
	{ID: 30, Name: "Blender", Category: "kitchen", Price: 70, Rating: 4.3, Brand: "BlendPro"},
}
