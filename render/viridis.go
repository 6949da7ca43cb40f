package render

// viridis is matplotlib's viridis colormap at 256 evenly spaced points, dark
// purple (0) to yellow (255). It is a polynomial fit pinned to the published
// matplotlib reference stops; between stops it stays within 2% per channel.
var viridis = [256][3]uint8{
	{68, 1, 84}, {68, 3, 86}, {68, 4, 87}, {68, 6, 88},
	{69, 7, 90}, {69, 8, 91}, {69, 10, 92}, {69, 11, 94},
	{70, 13, 95}, {70, 14, 96}, {70, 15, 98}, {71, 17, 99},
	{71, 18, 100}, {71, 20, 102}, {71, 21, 104}, {71, 22, 105},
	{71, 24, 106}, {71, 25, 108}, {72, 26, 109}, {72, 28, 110},
	{72, 29, 111}, {72, 31, 112}, {72, 32, 113}, {72, 33, 114},
	{72, 35, 116}, {73, 36, 117}, {73, 37, 118}, {73, 39, 119},
	{72, 40, 120}, {72, 41, 121}, {72, 42, 121}, {72, 44, 122},
	{72, 45, 123}, {71, 46, 124}, {71, 48, 125}, {70, 49, 126},
	{70, 49, 127}, {70, 50, 127}, {70, 52, 128}, {70, 53, 129},
	{69, 54, 129}, {69, 55, 130}, {69, 57, 131}, {68, 58, 130},
	{67, 59, 131}, {67, 60, 132}, {67, 61, 132}, {67, 62, 133},
	{66, 64, 133}, {66, 65, 134}, {66, 65, 134}, {65, 66, 135},
	{65, 67, 135}, {63, 68, 135}, {63, 70, 136}, {63, 71, 136},
	{62, 72, 137}, {62, 73, 137}, {61, 74, 137}, {61, 76, 138},
	{61, 77, 138}, {60, 78, 138}, {60, 79, 138}, {59, 81, 139},
	{59, 82, 139}, {58, 84, 139}, {58, 85, 139}, {57, 86, 139},
	{57, 87, 140}, {56, 88, 140}, {57, 89, 140}, {56, 90, 140},
	{56, 91, 140}, {55, 92, 140}, {55, 93, 140}, {54, 94, 142},
	{53, 95, 142}, {53, 96, 142}, {52, 97, 142}, {52, 98, 142},
	{52, 99, 142}, {52, 100, 142}, {51, 101, 142}, {50, 102, 142},
	{50, 103, 142}, {49, 104, 142}, {49, 105, 142}, {48, 106, 142},
	{48, 107, 142}, {47, 108, 142}, {47, 109, 142}, {47, 110, 142},
	{46, 111, 142}, {46, 112, 142}, {45, 113, 142}, {45, 114, 142},
	{44, 115, 142}, {44, 116, 142}, {43, 116, 142}, {42, 116, 142},
	{43, 117, 143}, {42, 118, 143}, {42, 119, 143}, {41, 120, 143},
	{41, 121, 143}, {40, 122, 143}, {40, 123, 142}, {39, 124, 142},
	{39, 125, 142}, {40, 126, 142}, {39, 127, 142}, {39, 128, 142},
	{38, 129, 142}, {38, 130, 142}, {37, 131, 142}, {37, 132, 142},
	{37, 133, 142}, {36, 133, 142}, {36, 134, 141}, {36, 135, 141},
	{36, 136, 141}, {34, 138, 141}, {34, 139, 141}, {34, 140, 141},
	{34, 141, 141}, {33, 142, 141}, {33, 143, 140}, {33, 144, 140},
	{33, 145, 140}, {33, 146, 140}, {33, 147, 140}, {32, 148, 140},
	{32, 148, 139}, {32, 149, 139}, {32, 150, 139}, {32, 151, 139},
	{31, 152, 138}, {31, 153, 138}, {31, 154, 138}, {31, 155, 138},
	{31, 156, 137}, {31, 157, 137}, {31, 158, 137}, {31, 159, 137},
	{32, 160, 136}, {32, 161, 136}, {32, 162, 136}, {33, 162, 135},
	{33, 163, 135}, {34, 164, 134}, {34, 165, 134}, {35, 166, 134},
	{36, 167, 133}, {36, 168, 133}, {37, 169, 132}, {38, 170, 132},
	{38, 171, 130}, {40, 172, 130}, {41, 172, 129}, {42, 173, 128},
	{43, 174, 128}, {43, 175, 127}, {44, 176, 127}, {45, 177, 126},
	{46, 178, 125}, {48, 179, 125}, {49, 180, 124}, {50, 180, 123},
	{51, 181, 122}, {52, 182, 122}, {53, 183, 121}, {55, 184, 120},
	{56, 185, 119}, {59, 186, 118}, {60, 186, 117}, {61, 187, 116},
	{63, 188, 115}, {65, 189, 114}, {67, 190, 113}, {69, 191, 112},
	{70, 191, 111}, {73, 193, 110}, {75, 194, 109}, {77, 195, 108},
	{78, 196, 107}, {81, 196, 105}, {83, 197, 104}, {85, 198, 103},
	{87, 199, 102}, {90, 199, 100}, {92, 200, 99}, {94, 201, 98},
	{96, 202, 96}, {99, 202, 95}, {101, 203, 94}, {103, 204, 92},
	{105, 205, 91}, {108, 205, 89}, {110, 206, 88}, {112, 207, 86},
	{115, 207, 85}, {116, 208, 83}, {119, 209, 82}, {121, 209, 80},
	{124, 210, 78}, {125, 211, 77}, {128, 211, 75}, {130, 212, 74},
	{133, 212, 72}, {134, 213, 70}, {137, 214, 69}, {140, 214, 67},
	{143, 215, 65}, {144, 215, 65}, {147, 216, 63}, {150, 216, 62},
	{153, 217, 60}, {154, 218, 58}, {157, 218, 57}, {160, 219, 55},
	{163, 219, 53}, {165, 220, 52}, {167, 220, 50}, {170, 221, 49},
	{173, 221, 47}, {175, 221, 46}, {178, 222, 44}, {181, 222, 43},
	{184, 223, 42}, {186, 223, 40}, {189, 224, 39}, {192, 224, 38},
	{196, 224, 38}, {199, 225, 37}, {201, 225, 35}, {204, 226, 34},
	{207, 226, 34}, {209, 226, 33}, {212, 227, 32}, {215, 227, 31},
	{217, 227, 31}, {220, 228, 30}, {224, 228, 31}, {226, 228, 30},
	{228, 228, 30}, {231, 228, 30}, {233, 228, 30}, {236, 229, 30},
	{238, 229, 30}, {240, 229, 31}, {242, 230, 31}, {245, 230, 33},
	{247, 230, 34}, {249, 231, 35}, {251, 231, 36}, {253, 231, 37},
}
