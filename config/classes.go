package config

// VOCClassNames lists the PASCAL VOC categories. Class target 1 maps to
// VOCClassNames[0]; 0 is background.
var VOCClassNames = []string{
	"aeroplane", "bicycle", "bird", "boat", "bottle",
	"bus", "car", "cat", "chair", "cow",
	"diningtable", "dog", "horse", "motorbike", "person",
	"pottedplant", "sheep", "sofa", "train", "tvmonitor",
}
