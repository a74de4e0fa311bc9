package products

var seedCatalogue = []Input{
	{
		Title:       "Stoneware Coffee Mug",
		Description: "Hand glazed 350ml mug, dishwasher safe.",
		Price:       14.5,
		Image:       "/images/products/stoneware-mug.jpg",
		Slug:        "stoneware-coffee-mug",
	},
	{
		Title:       "Loose Leaf Green Tea",
		Description: "100g tin of first flush sencha.",
		Price:       9.99,
		Image:       "/images/products/green-tea.jpg",
		Slug:        "loose-leaf-green-tea",
	},
	{
		Title:       "Pour Over Kettle",
		Description: "1L gooseneck kettle with built-in thermometer.",
		Price:       42,
		Image:       "/images/products/pour-over-kettle.jpg",
		Slug:        "pour-over-kettle",
	},
	{
		Title:       "Linen Tea Towel",
		Description: "Pre-washed linen, 50 x 70 cm.",
		Price:       11.25,
		Image:       "/images/products/linen-towel.jpg",
		Slug:        "linen-tea-towel",
	},
	{
		Title:       "Ceramic Dripper",
		Description: "Size 02 dripper for paper filters.",
		Price:       24,
		Image:       "/images/products/ceramic-dripper.jpg",
		Slug:        "ceramic-dripper",
	},
	{
		Title:       "Whole Bean Espresso Blend",
		Description: "1kg bag, medium roast, chocolate and cherry notes.",
		Price:       27.8,
		Image:       "/images/products/espresso-blend.jpg",
		Slug:        "whole-bean-espresso-blend",
	},
}
